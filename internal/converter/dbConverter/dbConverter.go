package dbConverter

import (
	"encoding/json"
	"fmt"

	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/internal/model/dbModel"
)

func ConvertAccount(dbAccount dbModel.Account) model.Account {
	return model.Account{
		ID:          dbAccount.AccountID,
		Name:        dbAccount.Name,
		AccountType: dbAccount.AccountType,
		CreatedAt:   dbAccount.CreatedAt,
	}
}

func ConvertPosition(dbPosition dbModel.Position) (model.Position, error) {
	position := model.Position{
		ID:          dbPosition.PositionID,
		Symbol:      dbPosition.Symbol,
		Name:        dbPosition.Name,
		Units:       dbPosition.Units,
		Currency:    dbPosition.Currency,
		Category:    model.Category(dbPosition.Category),
		ManualPrice: dbPosition.ManualPrice,
		CreatedAt:   dbPosition.CreatedAt,
	}

	if dbPosition.CustomName != nil {
		position.CustomName = *dbPosition.CustomName
	}

	if len(dbPosition.MortgageData) > 0 {
		mortgage := model.MortgageData{}
		if err := json.Unmarshal(dbPosition.MortgageData, &mortgage); err != nil {
			return model.Position{}, fmt.Errorf("unmarshal mortgage data for position %s: %w", dbPosition.PositionID, err)
		}
		position.Mortgage = &mortgage
	}

	if len(dbPosition.DebtData) > 0 {
		debt := model.DebtData{}
		if err := json.Unmarshal(dbPosition.DebtData, &debt); err != nil {
			return model.Position{}, fmt.Errorf("unmarshal debt data for position %s: %w", dbPosition.PositionID, err)
		}
		position.Debt = &debt
	}

	return position, nil
}
