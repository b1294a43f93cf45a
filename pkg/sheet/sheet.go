// Package sheet appends rows to a Google spreadsheet with service account credentials.
package sheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/golarder/pkg/config"
	"github.com/itohio/golarder/pkg/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// InsertRows makes appended values always land in new rows.
const InsertRows = "INSERT_ROWS"

// Appender appends a value range after the last table row of a range.
type Appender interface {
	Append(ctx context.Context, spreadsheetID, rangeSpec string, vr *sheets.ValueRange) (*sheets.AppendValuesResponse, error)
}

// Client is an authenticated Sheets API client that tracks whether it holds a
// usable access token.
type Client struct {
	svc              *sheets.Service
	tokens           oauth2.TokenSource
	valueInputOption string
	tokenCheck       time.Duration
	logger           logging.Logger

	ready  atomic.Bool
	mu     sync.Mutex
	expiry time.Time
}

// New reads the service account key in cfg.CredentialsFile and creates a client.
// Tokens are refreshed cfg.Prerefresh before they expire.
func New(ctx context.Context, cfg config.SheetConfig, logger logging.Logger) (*Client, error) {
	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("sheet credentials file is not configured")
	}
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	tokens := oauth2.ReuseTokenSourceWithExpiry(nil, creds.TokenSource, cfg.Prerefresh)

	svc, err := sheets.NewService(ctx, option.WithTokenSource(tokens))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewWithService(svc, tokens, cfg, logger), nil
}

// NewWithService creates a client around an existing service and token source.
func NewWithService(svc *sheets.Service, tokens oauth2.TokenSource, cfg config.SheetConfig, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop{}
	}
	valueInputOption := cfg.ValueInputOption
	if valueInputOption == "" {
		valueInputOption = "USER_ENTERED"
	}
	tokenCheck := cfg.TokenCheck
	if tokenCheck <= 0 {
		tokenCheck = 30 * time.Second
	}

	return &Client{
		svc:              svc,
		tokens:           tokens,
		valueInputOption: valueInputOption,
		tokenCheck:       tokenCheck,
		logger:           logger,
	}
}

// Ready reports whether the last token check produced a valid token.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// Expiry returns the expiry of the last obtained token.
func (c *Client) Expiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiry
}

// Refresh obtains a token, fetching a new one if the cached token is about to expire.
func (c *Client) Refresh() error {
	tok, err := c.tokens.Token()
	if err != nil {
		c.ready.Store(false)
		return fmt.Errorf("failed to obtain token: %w", err)
	}
	if !tok.Valid() {
		c.ready.Store(false)
		return fmt.Errorf("obtained token is not valid")
	}

	c.mu.Lock()
	c.expiry = tok.Expiry
	c.mu.Unlock()
	c.ready.Store(true)
	return nil
}

// Run checks the token every TokenCheck interval until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tokenCheck)
	defer ticker.Stop()

	c.check()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.check()
		}
	}
}

func (c *Client) check() {
	wasReady := c.Ready()
	if err := c.Refresh(); err != nil {
		c.logger.Error("Token not ready: %v", err)
		return
	}
	if !wasReady {
		c.logger.Info("Token ready, expires %s", c.Expiry().Format(time.RFC3339))
	}
}

// Append appends vr to rangeSpec of the spreadsheet as new rows.
func (c *Client) Append(ctx context.Context, spreadsheetID, rangeSpec string, vr *sheets.ValueRange) (*sheets.AppendValuesResponse, error) {
	resp, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, rangeSpec, vr).
		ValueInputOption(c.valueInputOption).
		InsertDataOption(InsertRows).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("append to %s: %w", rangeSpec, err)
	}
	return resp, nil
}

// ErrorReason returns the reason reported by the API for err, or err itself.
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		msg := gErr.Message
		if msg == "" && len(gErr.Errors) > 0 {
			msg = gErr.Errors[0].Message
		}
		if msg == "" {
			msg = http.StatusText(gErr.Code)
		}
		return fmt.Sprintf("%d %s", gErr.Code, msg)
	}
	return err.Error()
}

// DryRun logs the payload instead of sending it.
type DryRun struct {
	Logger logging.Logger
}

// Ready always reports true.
func (DryRun) Ready() bool { return true }

// Append logs vr and returns a response describing what would have been updated.
func (d DryRun) Append(ctx context.Context, spreadsheetID, rangeSpec string, vr *sheets.ValueRange) (*sheets.AppendValuesResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(vr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	if d.Logger != nil {
		d.Logger.Info("dry run append to %s %s: %s", spreadsheetID, rangeSpec, payload)
	}

	var cells int64
	for _, col := range vr.Values {
		cells += int64(len(col))
	}
	return &sheets.AppendValuesResponse{
		SpreadsheetId: spreadsheetID,
		TableRange:    rangeSpec,
		Updates: &sheets.UpdateValuesResponse{
			SpreadsheetId:  spreadsheetID,
			UpdatedRange:   rangeSpec,
			UpdatedColumns: int64(len(vr.Values)),
			UpdatedRows:    1,
			UpdatedCells:   cells,
		},
	}, nil
}

var (
	_ Appender = (*Client)(nil)
	_ Appender = DryRun{}
)
