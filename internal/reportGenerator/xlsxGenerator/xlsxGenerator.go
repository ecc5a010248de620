package xlsxGenerator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/utils"
	"github.com/xuri/excelize/v2"
)

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, valuation model.PortfolioValuation) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	if len(valuation.Accounts) == 0 {
		return nil, "", errors.New("empty valuation")
	}

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSummarySheet(f, valuation); err != nil {
		return nil, "", err
	}

	for i, account := range valuation.Accounts {
		if err := g.fillAccountSheet(f, account, valuation.BaseCurrency, i+1); err != nil {
			return nil, "", err
		}
	}

	// drop the default "Sheet1"
	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillSummarySheet(f *excelize.File, valuation model.PortfolioValuation) error {
	const sheetName = "Summary"

	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "B1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Net worth (%s)", valuation.BaseCurrency))

	styleID, err := headerStyle(f, "#cfe2f3") // light blue
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "account")
	_ = f.SetCellStr(sheetName, "B2", "total")

	row := 3
	for _, account := range valuation.Accounts {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), account.AccountName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), account.TotalBaseValue.InexactFloat64())
		row++
	}

	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), "TOTAL")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), valuation.TotalBaseValue.InexactFloat64())

	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row+2), "data as of")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row+2), valuation.FreshestAt.Format("2006-01-02 15:04:05"))

	return nil
}

func (g *XLSXGenerator) fillAccountSheet(f *excelize.File, account model.AccountValuation, baseCurrency string, ordinal int) error {
	sheetName := fmt.Sprintf("%d. %s", ordinal, account.AccountName)
	_, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "I1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", account.AccountName)

	styleID, err := headerStyle(f, "#d9ead3") // light green
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "name")
	_ = f.SetCellStr(sheetName, "B2", "symbol")
	_ = f.SetCellStr(sheetName, "C2", "category")
	_ = f.SetCellStr(sheetName, "D2", "units")
	_ = f.SetCellStr(sheetName, "E2", "price")
	_ = f.SetCellStr(sheetName, "F2", "value")
	_ = f.SetCellStr(sheetName, "G2", "currency")
	_ = f.SetCellStr(sheetName, "H2", "fx rate")
	_ = f.SetCellStr(sheetName, "I2", fmt.Sprintf("value (%s)", baseCurrency))

	for i, pv := range account.Positions {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), pv.Position.DisplayName())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), pv.Position.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), string(pv.Position.Category))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), pv.Position.Units.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), pv.CurrentPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), pv.TotalNativeValue.InexactFloat64())
		_ = f.SetCellStr(sheetName, fmt.Sprintf("G%d", row), pv.Position.Currency)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), pv.FxRate.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), pv.TotalBaseValue.InexactFloat64())
	}

	totalRow := len(account.Positions) + 3
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", totalRow), "TOTAL")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", totalRow), account.TotalBaseValue.InexactFloat64())

	return nil
}
