package hpiApi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/KotFed0t/networth_tracker_bot/config"
	"github.com/KotFed0t/networth_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/internal/model/hpiModel"
	"github.com/KotFed0t/networth_tracker_bot/utils"
	"github.com/go-resty/resty/v2"
)

// HpiApi looks up house-price-index movement for a postcode since a
// valuation date. Results are memoized per (postcode, valuationDate) so the
// sync read can serve a cached value without touching the network.
type HpiApi struct {
	client *resty.Client

	mu     sync.RWMutex
	cached map[string]model.PropertyPriceChange
}

func New(cfg *config.Config) *HpiApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.HpiApi.Url)
	return &HpiApi{client: client, cached: make(map[string]model.PropertyPriceChange)}
}

func cacheKey(postcode, valuationDate string) string {
	return postcode + ":" + valuationDate
}

func (a *HpiApi) GetPropertyPriceChange(ctx context.Context, postcode, valuationDate string) (model.PropertyPriceChange, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start HpiApi.GetPropertyPriceChange request", slog.String("rqID", rqID), slog.String("postcode", postcode))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{"postcode": postcode, "from": valuationDate}).
		Get("/v1/price-change")

	if err != nil {
		slog.Error("error while dialing HpiApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.PropertyPriceChange{}, err
	}

	if resp.IsError() {
		slog.Error("HpiApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		if resp.StatusCode() == http.StatusNotFound {
			return model.PropertyPriceChange{}, externalApi.ErrNotFound
		}
		return model.PropertyPriceChange{}, &externalApi.StatusError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	rawChange := hpiModel.RawPriceChangeResponse{}
	err = json.Unmarshal(resp.Body(), &rawChange)
	if err != nil {
		slog.Error("can't unmarshall response into hpiModel.RawPriceChangeResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.PropertyPriceChange{}, err
	}

	change := model.PropertyPriceChange{ChangePercent: rawChange.ChangePercent, FetchedAt: time.Now()}

	a.mu.Lock()
	a.cached[cacheKey(postcode, valuationDate)] = change
	a.mu.Unlock()

	slog.Debug("HpiApi.GetPropertyPriceChange request complete", slog.String("rqID", rqID))

	return change, nil
}

// GetPropertyPriceChangeSync returns a previously fetched value, never
// touching the network.
func (a *HpiApi) GetPropertyPriceChangeSync(postcode, valuationDate string) (model.PropertyPriceChange, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	change, ok := a.cached[cacheKey(postcode, valuationDate)]
	return change, ok
}
