package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneh/internal/core"
)

// Column layout of the mirror sheet, A through G.
var headerRow = []any{"ID", "Created", "Type", "Category", "Description", "Amount", "User"}

const lastColumn = "G"

// entryRow renders e in column order. The amount goes out as a plain
// decimal string so USER_ENTERED turns it into a number.
func entryRow(e core.Entry) []any {
	return []any{
		strconv.FormatInt(int64(e.ID), 10),
		e.CreatedAt.UTC().Format(time.DateTime),
		e.Type.String(),
		e.Category,
		e.Description,
		core.FormatAmount(e.Amount),
		strconv.FormatInt(int64(e.UserID), 10),
	}
}

// findRow returns the 1-based sheet row whose first cell holds id, or 0.
// values is the column A read starting at row 1.
func findRow(values [][]any, id core.EntryID) int {
	want := strconv.FormatInt(int64(id), 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", quoteSheet(sheet), row, lastColumn, row)
}

func columnRange(sheet string) string {
	return fmt.Sprintf("%s!A:A", quoteSheet(sheet))
}

// quoteSheet wraps names containing spaces or quotes in A1 notation quotes.
func quoteSheet(name string) string {
	if !strings.ContainsAny(name, " '!") {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
