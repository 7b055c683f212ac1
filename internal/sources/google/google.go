package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"claimlens/internal/dataset"
	"claimlens/internal/sources"
)

// Config selects the spreadsheet and the tabs that hold claim rows.
type Config struct {
	SpreadsheetID string
	// SheetNames are read in order and concatenated; every tab carries its
	// own header row.
	SheetNames      []string
	CredentialsJSON string
	CredentialsFile string
	// OAuthTokenFile selects user credentials instead of a service
	// account. The token is created with `claimsctl sheets-auth`.
	OAuthTokenFile  string
	OAuthClientJSON string
	OAuthClientFile string
	Columns         sources.Columns
}

// Client reads claim rows from a Google Sheets spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheets        []string
	columns       sources.Columns
}

// Ensure interface conformance
var _ sources.RowReader = (*Client)(nil)

// NewFromConfig creates a read-only Sheets client. A configured OAuth token
// file wins; otherwise service account credentials from cfg are used,
// falling back to GOOGLE_APPLICATION_CREDENTIALS.
func NewFromConfig(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, cfg.SpreadsheetID, cfg.SheetNames, cfg.Columns), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID string, sheetNames []string, cols sources.Columns) *Client {
	names := make([]string, 0, len(sheetNames))
	for _, n := range sheetNames {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		names = []string{"Claims"}
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheets:        names,
		columns:       cols.WithDefaults(),
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	if strings.TrimSpace(cfg.OAuthTokenFile) != "" {
		slog.DebugContext(ctx, "Using OAuth user token", "path", cfg.OAuthTokenFile)
		ts, err := oauthTokenSource(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return gsheet.NewService(ctx, goption.WithTokenSource(ts))
	}

	serviceAccountJSON := strings.TrimSpace(cfg.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(cfg.CredentialsFile)

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ReadRows fetches every configured tab concurrently and returns their rows
// in tab order.
func (c *Client) ReadRows(ctx context.Context) ([]dataset.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}

	results := make([][]dataset.Row, len(c.sheets))
	g, gctx := errgroup.WithContext(ctx)
	for i, sheet := range c.sheets {
		i, sheet := i, sheet
		g.Go(func() error {
			resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet).Context(gctx).Do()
			if err != nil {
				return fmt.Errorf("read %s: %w", sheet, err)
			}
			rows, err := parseValues(resp.Values, c.columns)
			if err != nil {
				return fmt.Errorf("sheet %s: %w", sheet, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []dataset.Row
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}
