// Package sheets appends exported transactions to a Google spreadsheet
// using a service account.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"gastos/internal/config"
	"gastos/internal/export"
	"gastos/internal/log"
)

// Client implements export.RowAppender against the Google Sheets API.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// NewClient builds a Sheets client from service account credentials. Inline
// JSON wins over a credentials file; GOOGLE_APPLICATION_CREDENTIALS is the
// fallback.
func NewClient(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Client, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	credentialsJSON, err := resolveCredentials(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleSheetName,
		logger:        logger.WithComponent(log.ComponentExport),
	}, nil
}

func resolveCredentials(cfg *config.Config) ([]byte, error) {
	if inline := strings.TrimSpace(cfg.GoogleCredentialsJSON); inline != "" {
		return []byte(inline), nil
	}

	file := strings.TrimSpace(cfg.GoogleCredentialsFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	credentialsJSON, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return credentialsJSON, nil
}

// AppendRow appends one transaction row after the existing data. The Sheets
// append API finds the next free row itself, so concurrent workers do not
// clobber each other.
func (c *Client) AppendRow(ctx context.Context, row export.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{
		Values: [][]any{{row.Date, row.Description, row.Kind, row.Category, row.Amount, row.Source}},
	}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	c.logger.DebugContext(ctx, "Appended row to spreadsheet",
		"sheet", c.sheetName,
		"descripcion", row.Description)
	return nil
}
