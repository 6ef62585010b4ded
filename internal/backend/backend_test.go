package backend

import (
	"context"
	"strings"
	"testing"

	"budgeting/internal/config"
	gsheet "budgeting/internal/sheets/google"
	"budgeting/internal/sheets/memory"
)

const (
	testClientJSON = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`
	testTokenJSON  = `{"access_token":"at","token_type":"Bearer","refresh_token":"rt","expiry":"2030-01-01T00:00:00Z"}`
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := &config.Config{ExportBackend: "sqlite"}
	if _, err := FromAppConfig(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg = &config.Config{
		ExportBackend:            "sheets",
		GoogleSpreadsheetID:      "sheet-1",
		GoogleSheetName:          "Budget",
		GoogleServiceAccountFile: "/secrets/sa.json",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if got.Type != SheetsBackend || got.GoogleSpreadsheetID != "sheet-1" || got.GoogleServiceAccountFile != "/secrets/sa.json" {
		t.Errorf("unexpected config: %+v", got)
	}
}

func TestConfigValidate(t *testing.T) {
	sheets := func(mutate func(*Config)) Config {
		c := Config{
			Type:                  SheetsBackend,
			GoogleSpreadsheetID:   "sheet-1",
			GoogleSheetName:       "Budget",
			GoogleOAuthClientJSON: testClientJSON,
			GoogleOAuthTokenJSON:  testTokenJSON,
		}
		if mutate != nil {
			mutate(&c)
		}
		return c
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"unknown", Config{Type: "csv"}, "invalid backend type"},
		{"sheets oauth", sheets(nil), ""},
		{"sheets service account", sheets(func(c *Config) {
			c.GoogleOAuthClientJSON, c.GoogleOAuthTokenJSON = "", ""
			c.GoogleServiceAccountJSON = `{}`
		}), ""},
		{"missing spreadsheet", sheets(func(c *Config) { c.GoogleSpreadsheetID = "" }), "Spreadsheet ID"},
		{"missing sheet name", sheets(func(c *Config) { c.GoogleSheetName = "" }), "Sheet name"},
		{"client without token", sheets(func(c *Config) { c.GoogleOAuthTokenJSON = "" }), "GoogleOAuthTokenFile"},
		{"no credentials", sheets(func(c *Config) {
			c.GoogleOAuthClientJSON, c.GoogleOAuthTokenJSON = "", ""
		}), "service account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCreateExporter(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	res, err := f.CreateExporter(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := res.Exporter.(*memory.Store); !ok {
		t.Errorf("memory exporter type = %T", res.Exporter)
	}
	if err := res.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	res, err = f.CreateExporter(ctx, Config{
		Type:                  SheetsBackend,
		GoogleSpreadsheetID:   "sheet-1",
		GoogleSheetName:       "Budget",
		GoogleOAuthClientJSON: testClientJSON,
		GoogleOAuthTokenJSON:  testTokenJSON,
	})
	if err != nil {
		t.Fatalf("sheets: %v", err)
	}
	if _, ok := res.Exporter.(*gsheet.Client); !ok {
		t.Errorf("sheets exporter type = %T", res.Exporter)
	}

	_, err = f.CreateExporter(ctx, Config{
		Type:                  SheetsBackend,
		GoogleSpreadsheetID:   "sheet-1",
		GoogleSheetName:       "Budget",
		GoogleOAuthClientJSON: `{"nope":{}}`,
		GoogleOAuthTokenJSON:  testTokenJSON,
	})
	if err == nil || !strings.Contains(err.Error(), "Google Sheets client") {
		t.Errorf("bad client json: err = %v", err)
	}

	if _, err := f.CreateExporter(ctx, Config{Type: "csv"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestBackendTypeStrings(t *testing.T) {
	got := strings.Join(GetBackendTypeStrings(), ",")
	if got != "memory,sheets" {
		t.Errorf("GetBackendTypeStrings = %s", got)
	}
	var nilResult *ExporterResult
	if err := nilResult.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
