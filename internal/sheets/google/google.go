// Package google implements sheets.Gateway on top of the Google Sheets API.
// Each named table is one worksheet whose first row is the header.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	"google.golang.org/api/googleapi"
	gsheet "google.golang.org/api/sheets/v4"

	"lihkab/internal/log"
	ports "lihkab/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger
}

var _ ports.Gateway = (*Client)(nil)

// Options configures New. One of CredentialsJSON or CredentialsFile is
// required; GOOGLE_APPLICATION_CREDENTIALS is used when both are empty.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	Logger          *log.Logger
}

// New creates a client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: id, logger: logger}, nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test
// endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, logger: logger.WithComponent(log.ComponentSheets)}
}

func newSheetsService(ctx context.Context, opts Options, logger *log.Logger) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(opts.CredentialsJSON)
	credsFile := strings.TrimSpace(opts.CredentialsFile)
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var data []byte
	switch {
	case credsJSON != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		data = []byte(credsJSON)
	case credsFile != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", credsFile)
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		data = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(data),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// Read fetches the whole worksheet. Numbers come back unformatted so fees
// survive locale formatting; dates come back as displayed.
func (c *Client) Read(ctx context.Context, table string) (ports.Table, error) {
	start := time.Now()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheetRange(table)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return ports.Table{}, fmt.Errorf("read %s: %w", table, mapError(err))
	}
	t := ports.FromValues(resp.Values)
	c.logger.DebugContext(ctx, "Table read",
		log.FieldTable, table,
		log.FieldRows, t.Len(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return t, nil
}

// Write overwrites the worksheet: the new values are written from A1, then
// the cells to the right of them and every row below them are cleared. The
// calls are not atomic; a reader in between sees the new rows next to stale
// ones.
func (c *Client) Write(ctx context.Context, table string, t ports.Table) error {
	start := time.Now()
	values := t.Values()
	vr := &gsheet.ValueRange{Values: values}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheetRange(table)+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", table, mapError(err))
	}

	if width := len(t.Header); len(values) > 0 && width < lastColumn {
		right := fmt.Sprintf("%s!%s1:ZZ%d", sheetRange(table), columnName(width+1), len(values))
		if err := c.clear(ctx, right); err != nil {
			return fmt.Errorf("clear right of %s: %w", table, err)
		}
	}
	tail := fmt.Sprintf("%s!A%d:ZZ", sheetRange(table), len(values)+1)
	if err := c.clear(ctx, tail); err != nil {
		return fmt.Errorf("clear tail of %s: %w", table, err)
	}

	c.logger.InfoContext(ctx, "Table written",
		log.FieldTable, table,
		log.FieldRows, t.Len(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (c *Client) clear(ctx context.Context, rng string) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	return mapError(err)
}

// lastColumn is ZZ, the widest column Write clears.
const lastColumn = 26 * 27

// columnName returns the A1 letters of the 1-based column n.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// sheetRange quotes a worksheet name for A1 notation.
func sheetRange(table string) string {
	return "'" + strings.ReplaceAll(table, "'", "''") + "'"
}

// mapError turns the API's "unable to parse range" into ErrTableNotFound.
func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(gerr.Message), "unable to parse range") {
		return fmt.Errorf("%w: %s", ports.ErrTableNotFound, gerr.Message)
	}
	return err
}
