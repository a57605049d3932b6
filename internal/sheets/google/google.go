package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	ports "spendwise/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.Mirror = (*Client)(nil)

// Config selects the spreadsheet, its tabs and the service account used to
// reach it. CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID      string
	SubscriptionsSheet string
	IncomeSheet        string
	CredentialsJSON    string
	CredentialsFile    string
	RowCacheSize       int
	RowCacheTTL        time.Duration
}

// valuesAPI is the subset of the Sheets values API the client needs.
type valuesAPI interface {
	Get(ctx context.Context, rng string) ([][]any, error)
	Update(ctx context.Context, rng string, values [][]any) error
	Append(ctx context.Context, rng string, values [][]any) error
	Clear(ctx context.Context, rng string) error
}

// Client mirrors records into one tab per record kind. The row number of
// each mirrored ID is cached; a stale entry is detected by re-reading the
// ID cell before writing.
type Client struct {
	api           valuesAPI
	spreadsheetID string
	sheets        map[core.RecordKind]string
	rows          *cache.LRUCache[int]
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(&serviceValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg), nil
}

func newClient(api valuesAPI, cfg Config) *Client {
	if cfg.SubscriptionsSheet == "" {
		cfg.SubscriptionsSheet = "Subscriptions"
	}
	if cfg.IncomeSheet == "" {
		cfg.IncomeSheet = "Income"
	}
	if cfg.RowCacheSize <= 0 {
		cfg.RowCacheSize = 1000
	}
	if cfg.RowCacheTTL <= 0 {
		cfg.RowCacheTTL = 10 * time.Minute
	}
	return &Client{
		api:           api,
		spreadsheetID: cfg.SpreadsheetID,
		sheets: map[core.RecordKind]string{
			core.KindSubscription: cfg.SubscriptionsSheet,
			core.KindIncome:       cfg.IncomeSheet,
		},
		rows: cache.NewLRUCache[int](cfg.RowCacheSize, cfg.RowCacheTTL),
	}
}

// RowCache exposes the row cache so it can be registered for sweeping.
func (c *Client) RowCache() *cache.LRUCache[int] {
	return c.rows
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)
	return svc, nil
}

func (c *Client) sheetFor(kind core.RecordKind) (string, error) {
	name, ok := c.sheets[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidKind, kind)
	}
	return name, nil
}

func cacheKey(sheet, id string) string {
	return sheet + "\x00" + id
}

// UpsertRecord overwrites the record's row, or appends one when the record
// is not mirrored yet.
func (c *Client) UpsertRecord(ctx context.Context, r core.RecurringRecord) error {
	sheet, err := c.sheetFor(r.Kind)
	if err != nil {
		return err
	}
	row := ports.RowFromRecord(r)

	n, existing, err := c.findRow(ctx, sheet, r.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		if err := c.ensureHeader(ctx, sheet); err != nil {
			return err
		}
		if err := c.api.Append(ctx, sheet+"!A:J", [][]any{row.Values()}); err != nil {
			return fmt.Errorf("append to %s: %w", sheet, err)
		}
		// Position unknown until the next scan.
		c.rows.Delete(cacheKey(sheet, r.ID))
		slog.InfoContext(ctx, "Mirrored new record", "sheet", sheet, "id", r.ID, "version", r.Version)
		return nil
	}

	if existing != nil && existing.Version > r.Version {
		slog.InfoContext(ctx, "Skipping stale record update", "sheet", sheet, "id", r.ID,
			"mirrored_version", existing.Version, "version", r.Version)
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:J%d", sheet, n, n)
	if err := c.api.Update(ctx, rng, [][]any{row.Values()}); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Mirrored record update", "range", rng, "id", r.ID, "version", r.Version)
	return nil
}

// DeleteRecord clears the record's row. Rows are cleared rather than removed
// so cached positions of other records stay valid.
func (c *Client) DeleteRecord(ctx context.Context, kind core.RecordKind, id string) error {
	sheet, err := c.sheetFor(kind)
	if err != nil {
		return err
	}
	n, _, err := c.findRow(ctx, sheet, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:J%d", sheet, n, n)
	if err := c.api.Clear(ctx, rng); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	c.rows.Delete(cacheKey(sheet, id))
	slog.InfoContext(ctx, "Removed mirrored record", "range", rng, "id", id)
	return nil
}

func (c *Client) ListMirrored(ctx context.Context, kind core.RecordKind) ([]ports.MirroredRow, error) {
	sheet, err := c.sheetFor(kind)
	if err != nil {
		return nil, err
	}
	values, err := c.api.Get(ctx, sheet+"!A:J")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}

	var out []ports.MirroredRow
	for i, cells := range values {
		if i == 0 || len(cells) == 0 {
			continue
		}
		row, err := ports.ParseRow(cells)
		if err != nil {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// findRow returns the 1-based row holding id, or 0 when absent, together
// with the mirrored row when it could be parsed.
func (c *Client) findRow(ctx context.Context, sheet, id string) (int, *ports.MirroredRow, error) {
	key := cacheKey(sheet, id)
	if n, ok := c.rows.Get(key); ok {
		rng := fmt.Sprintf("%s!A%d:J%d", sheet, n, n)
		values, err := c.api.Get(ctx, rng)
		if err != nil {
			return 0, nil, fmt.Errorf("read %s: %w", rng, err)
		}
		if len(values) == 1 && len(values[0]) > 0 && fmt.Sprint(values[0][0]) == id {
			row, err := ports.ParseRow(values[0])
			if err != nil {
				return n, nil, nil
			}
			return n, &row, nil
		}
		c.rows.Delete(key)
	}

	values, err := c.api.Get(ctx, sheet+"!A:J")
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", sheet, err)
	}

	found := 0
	var match *ports.MirroredRow
	for i, cells := range values {
		if len(cells) == 0 {
			continue
		}
		rowID := strings.TrimSpace(fmt.Sprint(cells[0]))
		if rowID == "" || i == 0 {
			continue
		}
		c.rows.Set(cacheKey(sheet, rowID), i+1)
		if rowID == id {
			found = i + 1
			if row, err := ports.ParseRow(cells); err == nil {
				match = &row
			}
		}
	}
	return found, match, nil
}

func (c *Client) ensureHeader(ctx context.Context, sheet string) error {
	values, err := c.api.Get(ctx, sheet+"!A1:J1")
	if err != nil {
		return fmt.Errorf("read %s header: %w", sheet, err)
	}
	if len(values) > 0 && len(values[0]) > 0 {
		return nil
	}
	if err := c.api.Update(ctx, sheet+"!A1:J1", [][]any{ports.Header}); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	return nil
}

// serviceValues adapts the generated Sheets client to valuesAPI.
type serviceValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *serviceValues) Get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceValues) Update(ctx context.Context, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *serviceValues) Append(ctx context.Context, rng string, values [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (s *serviceValues) Clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	return err
}
