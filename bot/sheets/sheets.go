// Package sheets appends captured leads to a Google spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/m3rciful/funnelbot/bot/funnel"
	"github.com/m3rciful/funnelbot/core/logger"
	"log/slog"
)

// Config locates the target spreadsheet.
type Config struct {
	CredentialsFile string `yaml:"credentials_file" envconfig:"SHEETS_CREDENTIALS_FILE"`
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SHEETS_SPREADSHEET_ID"`
	Range           string `yaml:"range" envconfig:"SHEETS_RANGE"`
}

// Enabled reports whether the spreadsheet sink is configured at all.
func (c Config) Enabled() bool {
	return c.SpreadsheetID != ""
}

// Appender implements funnel.LeadSink by appending one row per lead.
type Appender struct {
	svc *sheetsapi.Service
	cfg Config
}

// New builds the sheets client from a service-account credentials file.
func New(ctx context.Context, cfg Config) (*Appender, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	if cfg.Range == "" {
		cfg.Range = "Leads!A:D"
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: service init: %w", err)
	}
	return &Appender{svc: svc, cfg: cfg}, nil
}

// Save appends (userId, name, phone, timestamp) to the configured range.
func (a *Appender) Save(ctx context.Context, lead funnel.Lead) error {
	row := &sheetsapi.ValueRange{
		Values: [][]interface{}{{
			lead.UserID,
			lead.Name,
			lead.Phone,
			lead.CapturedAt.Format(time.RFC3339),
		}},
	}
	_, err := a.svc.Spreadsheets.Values.
		Append(a.cfg.SpreadsheetID, a.cfg.Range, row).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append lead: %w", err)
	}
	logger.Debug(ctx, "sheets", "lead.appended",
		slog.Int64("user_id", lead.UserID),
	)
	return nil
}
