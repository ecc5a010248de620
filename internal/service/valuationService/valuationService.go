package valuationService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KotFed0t/networth_tracker_bot/config"
	"github.com/KotFed0t/networth_tracker_bot/data/repository"
	"github.com/KotFed0t/networth_tracker_bot/internal/debtSync"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/internal/service"
	"github.com/KotFed0t/networth_tracker_bot/utils"
)

type Repository interface {
	GetPortfolio(ctx context.Context) (model.Portfolio, error)
	CreateAccount(ctx context.Context, name, accountType string) (accountID string, err error)
	InsertPosition(ctx context.Context, accountID string, position model.Position) (positionID string, err error)
	ArchiveDebt(ctx context.Context, positionID string) error
}

type MarketCache interface {
	GetPrices(ctx context.Context, symbols []string) (map[string]model.CachedPrice, []model.PortfolioError)
	GetPricesSync(ctx context.Context, symbols []string) map[string]model.CachedPrice
	GetFxRates(ctx context.Context, currencies []string, base string) map[string]model.CachedFxRate
	GetFxRatesSync(ctx context.Context, currencies []string, base string) map[string]model.CachedFxRate
	ClearCache(ctx context.Context) error
}

type HpiApi interface {
	GetPropertyPriceChange(ctx context.Context, postcode, valuationDate string) (model.PropertyPriceChange, error)
	GetPropertyPriceChangeSync(postcode, valuationDate string) (model.PropertyPriceChange, bool)
}

type ReportGenerator interface {
	Generate(ctx context.Context, valuation model.PortfolioValuation) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

// ValuationService runs valuation cycles: it extracts fetch targets from the
// portfolio snapshot, fans out the four fetch families concurrently, joins on
// all of them and aggregates the value tree. Cycles are tagged with a
// generation token; a cycle that finishes after a newer one started is
// discarded instead of published.
type ValuationService struct {
	cfg          *config.Config
	repo         Repository
	cache        MarketCache
	hpiApi       HpiApi
	reportGen    ReportGenerator
	cloudStorage CloudStorage

	generation atomic.Uint64

	mu        sync.RWMutex
	latest    model.PortfolioValuation
	hasLatest bool
}

func New(
	cfg *config.Config,
	repo Repository,
	cache MarketCache,
	hpiApi HpiApi,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
) *ValuationService {
	return &ValuationService{
		cfg:          cfg,
		repo:         repo,
		cache:        cache,
		hpiApi:       hpiApi,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
	}
}

// GetNetWorth loads the current portfolio snapshot and runs a full valuation
// cycle against it.
func (s *ValuationService) GetNetWorth(ctx context.Context) (model.PortfolioValuation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.GetNetWorth"

	slog.Debug("GetNetWorth start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetNetWorth finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	portfolio, err := s.repo.GetPortfolio(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioValuation{}, err
	}

	return s.runCycle(ctx, portfolio), nil
}

// RefreshNetWorth wipes the market cache and runs a fresh cycle. Backs the
// explicit refresh action.
func (s *ValuationService) RefreshNetWorth(ctx context.Context) (model.PortfolioValuation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.RefreshNetWorth"

	if err := s.cache.ClearCache(ctx); err != nil {
		slog.Error("got error from cache.ClearCache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return s.GetNetWorth(ctx)
}

// LatestValuation returns the last published value tree without touching the
// network. Lets the bot answer instantly while a refresh is in flight.
func (s *ValuationService) LatestValuation() (model.PortfolioValuation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.hasLatest
}

// ValuationSync renders the value tree from today's cache only: no network
// calls, no stale fallback, missing entries degrade to the aggregator
// defaults. This is the optimistic view shown before a full cycle completes,
// so it is never published as latest.
func (s *ValuationService) ValuationSync(ctx context.Context) (model.PortfolioValuation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.ValuationSync"

	slog.Debug("ValuationSync start", slog.String("rqID", rqID), slog.String("op", op))

	portfolio, err := s.repo.GetPortfolio(ctx)
	if err != nil {
		slog.Error("got error from repo.GetPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioValuation{}, err
	}

	targets := extractFetchTargets(portfolio)

	in := ValuationInputs{
		BaseCurrency: s.cfg.Valuation.BaseCurrency,
		AsOf:         time.Now(),
		HpiChanges:   make(map[string]model.PropertyPriceChange, len(targets.Properties)),
	}

	in.Prices = s.cache.GetPricesSync(ctx, targets.Symbols)
	in.FxRates = s.cache.GetFxRatesSync(ctx, targets.Currencies, s.cfg.Valuation.BaseCurrency)
	for key, lookup := range targets.Properties {
		if change, ok := s.hpiApi.GetPropertyPriceChangeSync(lookup.Postcode, lookup.ValuationDate); ok {
			in.HpiChanges[key] = change
		}
	}
	in.DebtBalances = debtSync.SyncAllRepayments(targets.DebtItems, time.Now())

	return Valuate(portfolio, in), nil
}

// runCycle gathers market data for the snapshot and aggregates it. The four
// fetch families run concurrently; the barrier joins on all of them before
// valuation. The result is published only when no newer cycle has started in
// the meantime, otherwise the stale tree is dropped and the newest published
// state is returned instead.
func (s *ValuationService) runCycle(ctx context.Context, portfolio model.Portfolio) model.PortfolioValuation {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.runCycle"

	gen := s.generation.Add(1)
	targets := extractFetchTargets(portfolio)

	in := ValuationInputs{
		BaseCurrency: s.cfg.Valuation.BaseCurrency,
		AsOf:         time.Now(),
		HpiChanges:   make(map[string]model.PropertyPriceChange, len(targets.Properties)),
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		in.Prices, in.Errors = s.cache.GetPrices(ctx, targets.Symbols)
	}()

	go func() {
		defer wg.Done()
		in.FxRates = s.cache.GetFxRates(ctx, targets.Currencies, s.cfg.Valuation.BaseCurrency)
	}()

	go func() {
		defer wg.Done()
		for key, lookup := range targets.Properties {
			change, err := s.hpiApi.GetPropertyPriceChange(ctx, lookup.Postcode, lookup.ValuationDate)
			if err != nil {
				// missing lookup degrades to 0% index change in the aggregator
				slog.Warn("hpi lookup failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("postcode", lookup.Postcode), slog.String("err", err.Error()))
				continue
			}
			in.HpiChanges[key] = change
		}
	}()

	go func() {
		defer wg.Done()
		in.DebtBalances = debtSync.SyncAllRepayments(targets.DebtItems, time.Now())
	}()

	wg.Wait()

	valuation := Valuate(portfolio, in)

	if s.generation.Load() != gen {
		slog.Info("dropping stale valuation cycle", slog.String("rqID", rqID), slog.String("op", op), slog.Uint64("generation", gen))
		if latest, ok := s.LatestValuation(); ok {
			return latest
		}
		return valuation
	}

	s.mu.Lock()
	s.latest = valuation
	s.hasLatest = true
	s.mu.Unlock()

	return valuation
}

// WarmValuationCache is the scheduled job keeping the dated cache slots and
// the published valuation fresh. The scheduler stamps the request id.
func (s *ValuationService) WarmValuationCache(ctx context.Context) error {
	_, err := s.GetNetWorth(ctx)
	return err
}

func (s *ValuationService) CreateAccount(ctx context.Context, name, accountType string) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.CreateAccount"

	slog.Debug("CreateAccount start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name))

	accountID, err := s.repo.CreateAccount(ctx, name, accountType)
	if err != nil {
		slog.Error("got error from repo.CreateAccount", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return accountID, nil
}

func (s *ValuationService) AddPosition(ctx context.Context, accountID string, position model.Position) (string, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.AddPosition"

	slog.Debug("AddPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", position.Symbol))

	if _, err := position.Category.Class(); err != nil {
		return "", fmt.Errorf("%w: %s", service.ErrInvalidPosition, err)
	}

	positionID, err := s.repo.InsertPosition(ctx, accountID, position)
	if err != nil {
		slog.Error("got error from repo.InsertPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return positionID, nil
}

func (s *ValuationService) ArchiveDebt(ctx context.Context, positionID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.ArchiveDebt"

	slog.Debug("ArchiveDebt start", slog.String("rqID", rqID), slog.String("op", op), slog.String("positionID", positionID))

	err := s.repo.ArchiveDebt(ctx, positionID)
	if err != nil {
		slog.Error("got error from repo.ArchiveDebt", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		return err
	}

	return nil
}

// GenerateReport renders the current valuation into a spreadsheet and uploads
// it to cloud storage, returning the share link.
func (s *ValuationService) GenerateReport(ctx context.Context) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.GenerateReport"

	slog.Debug("GenerateReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GenerateReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	valuation, err := s.GetNetWorth(ctx)
	if err != nil {
		return "", err
	}

	fileBytes, fileExtension, err := s.reportGen.Generate(ctx, valuation)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := fmt.Sprintf("net_worth_%s%s", time.Now().Format("2006-01-02_15-04-05"), fileExtension)

	downloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}
