package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/networth_tracker_bot/data/repository"
	"github.com/KotFed0t/networth_tracker_bot/internal/converter/dbConverter"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/internal/model/dbModel"
	"github.com/KotFed0t/networth_tracker_bot/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

func (r *Postgres) CreateAccount(ctx context.Context, name, accountType string) (accountID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `INSERT INTO accounts(account_id, name, account_type) VALUES($1, $2, $3) RETURNING account_id`

	slog.Debug("CreateAccount start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreateAccount failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreateAccount completed", slog.String("rqID", rqID))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, uuid.NewString(), name, accountType).Scan(&accountID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return "", repository.ErrAlreadyExists
			}
		}
		return "", err
	}

	return accountID, nil
}

func (r *Postgres) InsertPosition(ctx context.Context, accountID string, position model.Position) (positionID string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO positions(position_id, account_id, symbol, name, custom_name, units, currency, category, manual_price, mortgage_data, debt_data)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING position_id
		`

	slog.Debug("InsertPosition start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertPosition failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertPosition completed", slog.String("rqID", rqID))
		}
	}()

	var mortgageData, debtData []byte
	if position.Mortgage != nil {
		mortgageData, err = json.Marshal(position.Mortgage)
		if err != nil {
			return "", err
		}
	}
	if position.Debt != nil {
		debtData, err = json.Marshal(position.Debt)
		if err != nil {
			return "", err
		}
	}

	var customName *string
	if position.CustomName != "" {
		customName = &position.CustomName
	}

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		uuid.NewString(),
		accountID,
		position.Symbol,
		position.Name,
		customName,
		position.Units,
		position.Currency,
		string(position.Category),
		position.ManualPrice,
		mortgageData,
		debtData,
	).Scan(&positionID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23503" { // foreign_key_violation
				return "", repository.ErrNotFound
			}
		}
		return "", err
	}

	return positionID, nil
}

// ArchiveDebt marks a debt position as settled. Archived debt stays in the
// portfolio for history but contributes zero to totals.
func (r *Postgres) ArchiveDebt(ctx context.Context, positionID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		UPDATE positions
		SET debt_data = jsonb_set(debt_data, '{archived}', 'true')
		WHERE position_id = $1
		AND debt_data IS NOT NULL
		`

	slog.Debug("ArchiveDebt start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ArchiveDebt failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("ArchiveDebt completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, positionID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) DeletePosition(ctx context.Context, positionID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `DELETE FROM positions WHERE position_id = $1`

	slog.Debug("DeletePosition start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeletePosition failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePosition completed", slog.String("rqID", rqID))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, positionID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetPortfolio reads the whole portfolio snapshot: every account with its
// positions in insertion order.
func (r *Postgres) GetPortfolio(ctx context.Context) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolio failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolio completed", slog.String("rqID", rqID))
		}
	}()

	accountsQuery := `SELECT account_id, name, account_type, dt_create FROM accounts ORDER BY dt_create`

	dbAccounts := make([]dbModel.Account, 0)
	err = r.txOrDb(ctx).SelectContext(ctx, &dbAccounts, accountsQuery)
	if err != nil {
		return model.Portfolio{}, err
	}

	positionsQuery := `
		SELECT position_id, account_id, symbol, name, custom_name, units, currency, category, manual_price, mortgage_data, debt_data, dt_create
		FROM positions
		ORDER BY dt_create
		`

	dbPositions := make([]dbModel.Position, 0)
	err = r.txOrDb(ctx).SelectContext(ctx, &dbPositions, positionsQuery)
	if err != nil {
		return model.Portfolio{}, err
	}

	positionsByAccount := make(map[string][]model.Position, len(dbAccounts))
	lastUpdate := time.Time{}
	for _, dbPosition := range dbPositions {
		position, convErr := dbConverter.ConvertPosition(dbPosition)
		if convErr != nil {
			return model.Portfolio{}, convErr
		}
		positionsByAccount[dbPosition.AccountID] = append(positionsByAccount[dbPosition.AccountID], position)
		if dbPosition.CreatedAt.After(lastUpdate) {
			lastUpdate = dbPosition.CreatedAt
		}
	}

	portfolio.Accounts = make([]model.Account, 0, len(dbAccounts))
	for _, dbAccount := range dbAccounts {
		account := dbConverter.ConvertAccount(dbAccount)
		account.Positions = positionsByAccount[dbAccount.AccountID]
		portfolio.Accounts = append(portfolio.Accounts, account)
		if dbAccount.CreatedAt.After(lastUpdate) {
			lastUpdate = dbAccount.CreatedAt
		}
	}
	portfolio.UpdatedAt = lastUpdate

	return portfolio, nil
}
