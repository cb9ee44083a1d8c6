// Package export renders a user's entries as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"moneh/internal/core"
)

const (
	SheetName   = "Entries"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{"Date", "Type", "Category", "Description", "Amount"}

// Filename is the attachment name offered for username's export on day.
func Filename(username string, day time.Time) string {
	return fmt.Sprintf("moneh_%s_%s.xlsx", username, day.Format("20060102"))
}

// Workbook builds the workbook for sum: one row per entry in the given
// order, then a blank row and the balance.
func Workbook(sum core.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(SheetName); err == nil {
		f.SetActiveSheet(index)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			f.Close()
			return nil, err
		}
	}

	row := 2
	for _, e := range sum.Entries {
		values := []any{
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			e.Type.String(),
			e.Category,
			e.Description,
			e.Amount.InexactFloat64(),
		}
		if err := setRow(f, row, values); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	row++
	if err := setRow(f, row, []any{"Balance", "", "", "", sum.Balance.InexactFloat64()}); err != nil {
		f.Close()
		return nil, err
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColStyle(SheetName, "E", amountStyle); err != nil {
		f.Close()
		return nil, err
	}

	f.SetColWidth(SheetName, "A", "A", 18)
	f.SetColWidth(SheetName, "B", "C", 12)
	f.SetColWidth(SheetName, "D", "D", 30)
	f.SetColWidth(SheetName, "E", "E", 12)

	return f, nil
}

// WriteXLSX streams the workbook for sum to w.
func WriteXLSX(w io.Writer, sum core.Summary) error {
	f, err := Workbook(sum)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(SheetName, cell, &values)
}
