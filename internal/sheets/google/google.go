package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tracker/internal/core"
	applog "tracker/internal/log"
	ports "tracker/internal/sheets"
)

// Ensure interface conformance
var _ ports.JournalWriter = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	Sheet         string
	// CredentialsJSON wins over CredentialsFile when both are set.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *applog.Logger
}

// New creates a Sheets journal client authenticated with a service account.
// Extra options are passed to the Sheets service, after the credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if cfg.Sheet == "" {
		cfg.Sheet = "Journal"
	}
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentSheets})
	}

	svcOpts, err := credentialOptions(cfg)
	if err != nil {
		return nil, err
	}
	svcOpts = append(svcOpts, goption.WithScopes(gsheet.SpreadsheetsScope))
	svcOpts = append(svcOpts, opts...)

	svc, err := gsheet.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets journal ready",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", cfg.Sheet)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         cfg.Sheet,
		logger:        logger,
	}, nil
}

func credentialOptions(cfg Config) ([]goption.ClientOption, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []goption.ClientOption{goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}, nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return []goption.ClientOption{goption.WithCredentialsJSON(data)}, nil
	default:
		return nil, nil
	}
}

// AppendEvent appends one row after the last row of the journal sheet and
// returns the updated range.
func (c *Client) AppendEvent(ctx context.Context, ev core.EntryEvent) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if ev.ID == "" {
		return "", errors.New("append event: missing id")
	}

	rng := fmt.Sprintf("%s!A:L", c.sheet)
	vr := &gsheet.ValueRange{Values: [][]any{ports.Row(ev)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheet, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Journal row appended",
		applog.FieldOperation, applog.OpAppend,
		applog.FieldEventID, ev.ID,
		applog.FieldJournalRef, ref)
	return ref, nil
}

// EnsureHeader writes the column header into row 1 when the sheet is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A1:L1", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header of %s: %w", c.sheet, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{ports.Header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header of %s: %w", c.sheet, err)
	}
	return nil
}
