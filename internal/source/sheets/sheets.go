// Package sheets stores expenses in a Google Sheets spreadsheet. The
// expenses sheet holds one row per expense in columns A:F
// (date, category, price, description, person id, id); the categories sheet
// lists one category per row in column A.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expenseview/internal/aggregate"
	"expenseview/internal/core"
	"expenseview/internal/log"
	"expenseview/internal/source"
)

const (
	DefaultExpensesSheet   = "Expenses"
	DefaultCategoriesSheet = "Categories"

	expenseColumns = "A%d:F"
	columnCount    = 6
)

var _ source.Source = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	// Sheet base names. The current year is prefixed unless the name
	// already starts with one, e.g. "2025 Expenses".
	ExpensesSheet   string
	CategoriesSheet string

	// Service account credentials, inline or as a file path. When both are
	// empty GOOGLE_APPLICATION_CREDENTIALS is used.
	CredentialsJSON string
	CredentialsFile string

	Clock  aggregate.Clock
	Logger *log.Logger
}

type Client struct {
	svc             *gsheet.Service
	spreadsheetID   string
	expensesSheet   string
	categoriesSheet string
	clock           aggregate.Clock
	logger          *log.Logger
}

// New creates a Sheets client authenticated with service account
// credentials.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, cfg Config) *Client {
	if cfg.Clock == nil {
		cfg.Clock = aggregate.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if strings.TrimSpace(cfg.ExpensesSheet) == "" {
		cfg.ExpensesSheet = DefaultExpensesSheet
	}
	if strings.TrimSpace(cfg.CategoriesSheet) == "" {
		cfg.CategoriesSheet = DefaultCategoriesSheet
	}
	year := cfg.Clock.Now().Year()
	return &Client{
		svc:             svc,
		spreadsheetID:   strings.TrimSpace(cfg.SpreadsheetID),
		expensesSheet:   yearPrefixedName(cfg.ExpensesSheet, year),
		categoriesSheet: yearPrefixedName(cfg.CategoriesSheet, year),
		clock:           cfg.Clock,
		logger:          cfg.Logger.WithComponent(log.ComponentSheets),
	}
}

func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) FetchAll(ctx context.Context, personID int64) ([]core.Expense, error) {
	return c.fetch(ctx, func(e core.Expense) bool { return e.PersonID == personID })
}

func (c *Client) FetchByCategory(ctx context.Context, category string, personID int64) ([]core.Expense, error) {
	return c.fetch(ctx, func(e core.Expense) bool {
		return e.PersonID == personID && e.Category == category
	})
}

func (c *Client) fetch(ctx context.Context, keep func(core.Expense) bool) ([]core.Expense, error) {
	rows, err := c.readRows(ctx)
	if err != nil {
		return nil, err
	}
	var out []core.Expense
	for _, r := range rows {
		if keep(r.expense) {
			out = append(out, r.expense)
		}
	}
	return out, nil
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	return c.readCol(ctx, c.categoriesSheet, "A2:A")
}

// Add appends a row and assigns the next free id.
func (c *Client) Add(ctx context.Context, e core.Expense, personID int64) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validation failed: %w", err)
	}
	rows, err := c.readRows(ctx)
	if err != nil {
		return core.Expense{}, err
	}
	var maxID int64
	for _, r := range rows {
		maxID = max(maxID, r.expense.ID)
	}
	e.ID = maxID + 1
	e.PersonID = personID

	rng := fmt.Sprintf("%s!A:F", c.expensesSheet)
	vr := &gsheet.ValueRange{Values: [][]any{{
		e.Date.String(), e.Category, e.Amount().String(), e.Description, e.PersonID, e.ID,
	}}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return core.Expense{}, fmt.Errorf("append to sheet %s: %w", c.expensesSheet, err)
	}
	return e, nil
}

// Delete clears the row holding id. Rows are not shifted, so later ids
// keep their position.
func (c *Client) Delete(ctx context.Context, id int64) error {
	rows, err := c.readRows(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.expense.ID != id {
			continue
		}
		rng := fmt.Sprintf("%s!A%d:F%d", c.expensesSheet, r.number, r.number)
		if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear %s: %w", rng, err)
		}
		return nil
	}
	return fmt.Errorf("delete %d: %w", id, source.ErrNotFound)
}

func (c *Client) CurrentMonthTotal(ctx context.Context, personID int64) (decimal.Decimal, error) {
	mine, err := c.FetchAll(ctx, personID)
	if err != nil {
		return decimal.Zero, err
	}
	return core.SumPrices(aggregate.CurrentMonth(mine, c.clock.Now())), nil
}

type row struct {
	number  int // 1-based sheet row
	expense core.Expense
}

func (c *Client) readRows(ctx context.Context) ([]row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	const firstRow = 2
	rng := fmt.Sprintf("%s!"+expenseColumns, c.expensesSheet, firstRow)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]row, 0, len(resp.Values))
	for i, values := range resp.Values {
		e, ok := parseRow(toStrings(values))
		if !ok {
			if len(values) > 0 {
				c.logger.DebugContext(ctx, "Skipping malformed row", "row", firstRow+i)
			}
			continue
		}
		out = append(out, row{number: firstRow + i, expense: e})
	}
	return out, nil
}

func (c *Client) readCol(ctx context.Context, sheetName, col string) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", sheetName, col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	seen := map[string]struct{}{}
	var out []string
	for _, r := range resp.Values {
		if len(r) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(r[0]))
		if v == "" || strings.HasPrefix(v, "#") {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// parseRow reads one A:F row. Rows without an id or owner are skipped; a
// blank price or date stays absent.
func parseRow(cols []string) (core.Expense, bool) {
	if len(cols) < columnCount {
		return core.Expense{}, false
	}
	id, err := strconv.ParseInt(cols[5], 10, 64)
	if err != nil || id <= 0 {
		return core.Expense{}, false
	}
	personID, err := strconv.ParseInt(cols[4], 10, 64)
	if err != nil {
		return core.Expense{}, false
	}
	e := core.Expense{
		ID:          id,
		PersonID:    personID,
		Category:    cols[1],
		Description: cols[3],
	}
	if cols[0] != "" {
		d, err := core.ParseDate(cols[0])
		if err != nil {
			return core.Expense{}, false
		}
		e.Date = d
	}
	if cols[2] != "" {
		amount, err := core.ParseAmount(cols[2])
		if err != nil {
			return core.Expense{}, false
		}
		e.Price = core.NewPrice(amount)
	}
	return e, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
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
