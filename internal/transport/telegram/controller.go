package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/KotFed0t/networth_tracker_bot/data/session"
	"github.com/KotFed0t/networth_tracker_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/internal/service"
	"github.com/KotFed0t/networth_tracker_bot/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

type ValuationService interface {
	GetNetWorth(ctx context.Context) (model.PortfolioValuation, error)
	RefreshNetWorth(ctx context.Context) (model.PortfolioValuation, error)
	ValuationSync(ctx context.Context) (model.PortfolioValuation, error)
	CreateAccount(ctx context.Context, name, accountType string) (accountID string, err error)
	AddPosition(ctx context.Context, accountID string, position model.Position) (positionID string, err error)
	ArchiveDebt(ctx context.Context, positionID string) error
	GenerateReport(ctx context.Context) (downloadLink string, err error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type Controller struct {
	valuationService ValuationService
	session          Session
}

func NewController(valuationService ValuationService, session Session) *Controller {
	return &Controller{
		valuationService: valuationService,
		session:          session,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send("Hello! Use /networth to see your portfolio value, /refresh to refetch market data, /report for a spreadsheet.")
}

func (ctrl *Controller) NetWorth(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	// show the cache-only view right away, the fresh cycle follows below
	if quick, err := ctrl.valuationService.ValuationSync(ctx); err == nil && len(quick.Accounts) > 0 {
		if sendErr := c.Send(telebotConverter.FormatValuation(quick)); sendErr != nil {
			slog.Error("failed to send quick valuation", slog.String("rqID", rqID), slog.String("err", sendErr.Error()))
		}
	}

	valuation, err := ctrl.valuationService.GetNetWorth(ctx)
	if err != nil {
		slog.Error("got error from valuationService.GetNetWorth", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send("something went wrong...")
	}

	return c.Send(telebotConverter.FormatValuation(valuation))
}

func (ctrl *Controller) Refresh(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	valuation, err := ctrl.valuationService.RefreshNetWorth(ctx)
	if err != nil {
		slog.Error("got error from valuationService.RefreshNetWorth", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send("something went wrong...")
	}

	return c.Send(telebotConverter.FormatValuation(valuation))
}

func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	downloadLink, err := ctrl.valuationService.GenerateReport(ctx)
	if err != nil {
		slog.Error("got error from valuationService.GenerateReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send("something went wrong...")
	}

	return c.Send("your report: " + downloadLink)
}

func (ctrl *Controller) InitAccountCreation(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.setSessionAction(ctx, c, model.ExpectingAccountName); err != nil {
		return c.Send("something went wrong...")
	}
	return c.Send("enter the account name:")
}

func (ctrl *Controller) CreateAccount(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	name := strings.TrimSpace(c.Text())
	if name == "" {
		return c.Send("account name can't be empty, try again:")
	}

	accountID, err := ctrl.valuationService.CreateAccount(ctx, name, "GENERAL")
	if err != nil {
		slog.Error("got error from valuationService.CreateAccount", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send("something went wrong...")
	}

	if err := ctrl.setSessionAction(ctx, c, model.DefaultAction); err != nil {
		return c.Send("something went wrong...")
	}

	return c.Send("account created, id: " + accountID)
}

func (ctrl *Controller) InitPositionAdd(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.setSessionAction(ctx, c, model.ExpectingPositionInput); err != nil {
		return c.Send("something went wrong...")
	}
	return c.Send("enter the position as: account_id;category;symbol;units;currency\nexample: 1b2c...;STOCK;AAPL;10;USD")
}

func (ctrl *Controller) AddPosition(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	accountID, position, err := parsePositionInput(c.Text())
	if err != nil {
		return c.Send("can't parse position: " + err.Error() + "\ntry again:")
	}

	positionID, err := ctrl.valuationService.AddPosition(ctx, accountID, position)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPosition) {
			return c.Send("that position doesn't look right, check the category and try again:")
		}
		slog.Error("got error from valuationService.AddPosition", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send("something went wrong...")
	}

	if err := ctrl.setSessionAction(ctx, c, model.DefaultAction); err != nil {
		return c.Send("something went wrong...")
	}

	return c.Send("position added, id: " + positionID)
}

func (ctrl *Controller) InitDebtArchive(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	if err := ctrl.setSessionAction(ctx, c, model.ExpectingDebtPositionID); err != nil {
		return c.Send("something went wrong...")
	}
	return c.Send("enter the debt position id to archive:")
}

func (ctrl *Controller) ArchiveDebt(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	positionID := strings.TrimSpace(c.Text())

	err := ctrl.valuationService.ArchiveDebt(ctx, positionID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send("can't find a position with that id, try again:")
		}
		slog.Error("got error from valuationService.ArchiveDebt", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send("something went wrong...")
	}

	if err := ctrl.setSessionAction(ctx, c, model.DefaultAction); err != nil {
		return c.Send("something went wrong...")
	}

	return c.Send("debt archived, it no longer counts towards your net worth")
}

func (ctrl *Controller) setSessionAction(ctx context.Context, c tele.Context, action model.Action) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	strChatID := strconv.FormatInt(c.Chat().ID, 10)

	chatSession, err := ctrl.session.GetSession(ctx, strChatID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	chatSession.Action = action
	err = ctrl.session.SetSession(ctx, strChatID, chatSession)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func parsePositionInput(text string) (accountID string, position model.Position, err error) {
	parts := strings.Split(text, ";")
	if len(parts) != 5 {
		return "", model.Position{}, errors.New("expected 5 fields separated by ';'")
	}

	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	units, err := decimal.NewFromString(parts[3])
	if err != nil {
		return "", model.Position{}, errors.New("units must be a number")
	}

	position = model.Position{
		Symbol:   strings.ToUpper(parts[2]),
		Units:    units,
		Currency: strings.ToUpper(parts[4]),
		Category: model.Category(strings.ToUpper(parts[1])),
	}

	if _, err := position.Category.Class(); err != nil {
		return "", model.Position{}, err
	}

	return parts[0], position, nil
}
