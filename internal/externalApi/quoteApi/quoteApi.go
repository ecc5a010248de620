package quoteApi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/networth_tracker_bot/config"
	"github.com/KotFed0t/networth_tracker_bot/internal/externalApi"
	"github.com/KotFed0t/networth_tracker_bot/internal/model/quoteModel"
	"github.com/KotFed0t/networth_tracker_bot/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type QuoteApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *QuoteApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.QuoteApi.Url)
	return &QuoteApi{client: client}
}

func (a *QuoteApi) GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start QuoteApi.GetQuote request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParam("symbol", symbol).
		Get("/v1/quote")

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return quoteModel.Quote{}, err
	}

	if resp.IsError() {
		slog.Error("QuoteApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		if resp.StatusCode() == http.StatusNotFound {
			return quoteModel.Quote{}, externalApi.ErrNotFound
		}
		return quoteModel.Quote{}, &externalApi.StatusError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	rawQuote := quoteModel.RawQuoteResponse{}
	err = json.Unmarshal(resp.Body(), &rawQuote)
	if err != nil {
		slog.Error("can't unmarshall response into quoteModel.RawQuoteResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return quoteModel.Quote{}, err
	}

	slog.Debug("QuoteApi.GetQuote request complete", slog.String("rqID", rqID))

	return quoteModel.Quote{
		Symbol:        rawQuote.Symbol,
		Name:          rawQuote.ShortName,
		Price:         rawQuote.Price,
		Currency:      rawQuote.Currency,
		Change:        rawQuote.Change,
		ChangePercent: rawQuote.ChangePercent,
	}, nil
}

func (a *QuoteApi) GetFxRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start QuoteApi.GetFxRate request", slog.String("rqID", rqID), slog.String("from", from), slog.String("to", to))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{"from": from, "to": to}).
		Get("/v1/fx")

	if err != nil {
		slog.Error("error while dialing QuoteApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return decimal.Decimal{}, err
	}

	if resp.IsError() {
		slog.Error("QuoteApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		if resp.StatusCode() == http.StatusNotFound {
			return decimal.Decimal{}, externalApi.ErrNotFound
		}
		return decimal.Decimal{}, &externalApi.StatusError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	rawRate := quoteModel.RawFxRateResponse{}
	err = json.Unmarshal(resp.Body(), &rawRate)
	if err != nil {
		slog.Error("can't unmarshall response into quoteModel.RawFxRateResponse", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return decimal.Decimal{}, err
	}

	slog.Debug("QuoteApi.GetFxRate request complete", slog.String("rqID", rqID))

	return rawRate.Rate, nil
}
