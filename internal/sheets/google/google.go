package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name of the journal sheet; the event year is prefixed.
	eventsBase string

	mu    sync.Mutex
	known map[string]bool
}

// Ensure interface conformance
var _ ports.LedgerMirror = (*Client)(nil)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, eventsBase string) *Client {
	if strings.TrimSpace(eventsBase) == "" {
		eventsBase = "Ledger"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		eventsBase:    strings.TrimSpace(eventsBase),
		known:         make(map[string]bool),
	}
}

// NewFromConfig creates a Sheets client authenticated with a service account
// taken from the environment.
func NewFromConfig(ctx context.Context, spreadsheetID, eventsBase string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, eventsBase), nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendEvent appends one journal row to "<year> <base>", creating the
// sheet with a header the first time the year is seen.
func (c *Client) AppendEvent(ctx context.Context, row ports.EventRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.eventsBase, row.Timestamp.Year())
	created, err := c.ensureSheet(ctx, sheet)
	if err != nil {
		return "", err
	}

	values := [][]any{toAny(row.Values())}
	if created {
		values = append([][]any{toAny(ports.EventHeader)}, values...)
	}

	rng := fmt.Sprintf("%s!A:J", quoteSheet(sheet))
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// ReplaceReport clears sheet and writes header followed by rows from A1.
func (c *Client) ReplaceReport(ctx context.Context, sheet string, header []string, rows [][]string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		return errors.New("report sheet name is required")
	}
	if _, err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	quoted := quoteSheet(sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, toAny(header))
	for _, r := range rows {
		values = append(values, toAny(r))
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quoted+"!A1", &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", sheet, err)
	}
	return nil
}

// ensureSheet adds sheet to the spreadsheet when missing and reports
// whether it had to be created.
func (c *Client) ensureSheet(ctx context.Context, sheet string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.known[sheet] {
		return false, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.known[s.Properties.Title] = true
		}
	}
	if c.known[sheet] {
		return false, nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return false, fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	c.known[sheet] = true
	slog.InfoContext(ctx, "Created spreadsheet tab", "sheet", sheet)
	return true, nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// quoteSheet quotes a sheet name for A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
