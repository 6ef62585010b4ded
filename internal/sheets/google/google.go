package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgeting/internal/core"
	ports "budgeting/internal/sheets"
)

const defaultTabCacheDuration = 10 * time.Minute

// Options configures the Sheets exporter. OAuth user credentials take
// precedence over a service account when both are set.
type Options struct {
	SpreadsheetID string
	// SheetBase is appended to the month in every tab name, e.g. "2024-03 Budget".
	SheetBase string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string

	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	// titles of existing tabs, refreshed when stale
	mu               sync.Mutex
	knownTabs        map[string]struct{}
	tabsExpireAt     time.Time
	tabCacheDuration time.Duration
}

var _ ports.SummaryExporter = (*Client)(nil)

// New creates a Sheets client from explicit options.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.SheetBase)
	if base == "" {
		base = "Budget"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:              svc,
		spreadsheetID:    spreadsheetID,
		sheetBase:        base,
		tabCacheDuration: defaultTabCacheDuration,
	}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	clientJSON, err := readInlineOrFile(opts.OAuthClientJSON, opts.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if len(clientJSON) > 0 {
		slog.InfoContext(ctx, "Creating Google Sheets service with OAuth user credentials")
		httpClient, err := oauthHTTPClient(ctx, clientJSON, opts)
		if err != nil {
			return nil, err
		}
		return gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	}

	saJSON, err := readInlineOrFile(opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	if len(saJSON) == 0 {
		return nil, errors.New("missing credentials (set GOOGLE_OAUTH_CLIENT_* with GOOGLE_OAUTH_TOKEN_*, or GOOGLE_SERVICE_ACCOUNT_JSON/FILE)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(saJSON),
		"scope", gsheet.SpreadsheetsScope)
	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(saJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	)
}

// oauthHTTPClient builds a token-refreshing client from an installed-app
// OAuth client and a token saved by oauth-init.
func oauthHTTPClient(ctx context.Context, clientJSON []byte, opts Options) (*http.Client, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}

	tokenJSON, err := readInlineOrFile(opts.OAuthTokenJSON, opts.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if len(tokenJSON) == 0 {
		return nil, errors.New("missing GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE (run oauth-init)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	// refreshes go through the pooled transport too
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return cfg.Client(ctx, &tok), nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and explicit timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// ExportMonth replaces the month's tab with the summary. The tab is created
// on first export.
func (c *Client) ExportMonth(ctx context.Context, s core.MonthSummary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if s.Period.IsZero() {
		return "", core.Invalid("period", "summary has no period")
	}

	tab := monthTabName(c.sheetBase, s.Period)
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, fmt.Sprintf("'%s'!A:Z", tab), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear tab %s: %w", tab, err)
	}

	rows := summaryRows(s)
	rng := rowsRange(tab, rows)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write tab %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Month summary exported",
		"plan_id", s.PlanID, "period", s.Period.String(), "range", rng, "rows", len(rows))
	return rng, nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	if c.tabKnown(tab) {
		return nil
	}

	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet tabs: %w", err)
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	c.rememberTabs(titles...)
	if c.tabKnown(tab) {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", tab, err)
	}
	slog.InfoContext(ctx, "Sheet tab created", "tab", tab)
	c.rememberTabs(tab)
	return nil
}

func (c *Client) tabKnown(tab string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Now().After(c.tabsExpireAt) {
		c.knownTabs = nil
		return false
	}
	_, ok := c.knownTabs[tab]
	return ok
}

func (c *Client) rememberTabs(titles ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.knownTabs == nil || time.Now().After(c.tabsExpireAt) {
		c.knownTabs = make(map[string]struct{}, len(titles))
		c.tabsExpireAt = time.Now().Add(c.tabCacheDuration)
	}
	for _, t := range titles {
		c.knownTabs[t] = struct{}{}
	}
}

// InvalidateTabCache forgets the known tabs, e.g. after a tab was deleted by hand.
func (c *Client) InvalidateTabCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.knownTabs = nil
	c.tabsExpireAt = time.Time{}
}

func readInlineOrFile(inline, path string) ([]byte, error) {
	if v := strings.TrimSpace(inline); v != "" {
		return []byte(v), nil
	}
	if p := strings.TrimSpace(path); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}
