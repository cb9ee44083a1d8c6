package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"moneh/internal/core"
)

func TestWriteXLSX(t *testing.T) {
	entries := []core.Entry{
		{ID: 2, UserID: 1, Amount: decimal.RequireFromString("-4.5"), Type: core.Expense, Category: "coffee", Description: "coffee", CreatedAt: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)},
		{ID: 1, UserID: 1, Amount: decimal.RequireFromString("100"), Type: core.Income, Category: "salary", Description: "january", CreatedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
	}
	sum := core.Summarize(entries)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sum))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "expense", rows[1][1])
	assert.Equal(t, "coffee", rows[1][2])
	assert.Equal(t, "-4.5", rows[1][4])
	assert.Equal(t, "january", rows[2][3])
	assert.Empty(t, rows[3])
	assert.Equal(t, "Balance", rows[4][0])
	assert.Equal(t, "95.5", rows[4][4])
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, core.Summarize(nil)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Balance", rows[2][0])
	assert.Equal(t, "0", rows[2][4])
}

func TestFilename(t *testing.T) {
	got := Filename("alice", time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "moneh_alice_20240709.xlsx", got)
}
