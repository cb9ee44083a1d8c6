package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneh/internal/core"
	"moneh/internal/log"
	ports "moneh/internal/sheets"
)

// Client mirrors entries into one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	// mu serialises find-then-write sequences so two events for new
	// entries cannot claim the same row.
	mu sync.Mutex
}

// Ensure interface conformance
var _ ports.EntryMirror = (*Client)(nil)

// Options selects the spreadsheet and the service account credentials.
// CredentialsJSON wins over CredentialsFile.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
}

// NewClient creates a Sheets client authenticated with a service account.
func NewClient(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Entries"
	}

	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options, logger *log.Logger) (*gsheet.Service, error) {
	var credentialsJSON []byte

	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// Upsert overwrites the row holding e.ID, or appends one after the last row.
// The header is written on the first append into an empty sheet.
func (c *Client) Upsert(ctx context.Context, e core.Entry) (string, error) {
	if e.ID <= 0 {
		return "", errors.New("entry without id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}

	row := findRow(values, e.ID)
	if row == 0 {
		if len(values) == 0 {
			if err := c.write(ctx, rowRange(c.sheetName, 1), headerRow); err != nil {
				return "", fmt.Errorf("write header: %w", err)
			}
			values = [][]any{headerRow}
		}
		row = len(values) + 1
	}

	ref := rowRange(c.sheetName, row)
	if err := c.write(ctx, ref, entryRow(e)); err != nil {
		return "", fmt.Errorf("write entry %d to %s: %w", e.ID, ref, err)
	}

	c.logger.InfoContext(ctx, "Entry mirrored",
		log.FieldEntryID, int64(e.ID),
		log.FieldSheetsRow, row)
	return ref, nil
}

// Remove clears the row of id. Rows are cleared rather than deleted so the
// row numbers of other entries stay put.
func (c *Client) Remove(ctx context.Context, id core.EntryID) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(values, id)
	if row == 0 {
		c.logger.DebugContext(ctx, "Entry not present in sheet", log.FieldEntryID, int64(id))
		return nil
	}

	ref := rowRange(c.sheetName, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, ref, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", ref, err)
	}

	c.logger.InfoContext(ctx, "Entry removed from sheet",
		log.FieldEntryID, int64(id),
		log.FieldSheetsRow, row)
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := columnRange(c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) write(ctx context.Context, rng string, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
