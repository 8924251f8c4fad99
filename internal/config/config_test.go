package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `provider: alidns
settings:
  access_key_id: ${TEST_AK}
  access_key_secret: sk-plain
domain: example.com
ttl: 300
listen: ":8080"
api_token: tok-123
records:
  - rr: nas
    ll: fe80::211:22ff:fe33:4455
  - rr: router
    ll: fe80::1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pd-ddns.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	t.Setenv("TEST_AK", "ak-from-env")

	cfg, err := LoadFromPath(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Provider != "alidns" {
		t.Errorf("expected provider 'alidns', got %q", cfg.Provider)
	}
	if cfg.Settings["access_key_id"] != "ak-from-env" {
		t.Errorf("expected env-expanded access_key_id, got %q", cfg.Settings["access_key_id"])
	}
	if cfg.Settings["access_key_secret"] != "sk-plain" {
		t.Errorf("expected literal access_key_secret, got %q", cfg.Settings["access_key_secret"])
	}
	if cfg.TTL != 300 {
		t.Errorf("expected ttl 300, got %d", cfg.TTL)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("expected listen :8080, got %q", cfg.Listen)
	}
	if len(cfg.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(cfg.Records))
	}
	if cfg.Records[0].RR != "nas" || cfg.Records[1].RR != "router" {
		t.Errorf("unexpected record order: %+v", cfg.Records)
	}
}

func TestLoadFromPath_Defaults(t *testing.T) {
	content := `provider: alidns
domain: example.com
api_token: tok
records:
  - rr: nas
    ll: fe80::1
`
	cfg, err := LoadFromPath(writeConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TTL != 600 {
		t.Errorf("expected default ttl 600, got %d", cfg.TTL)
	}
	if cfg.Listen != ":3000" {
		t.Errorf("expected default listen :3000, got %q", cfg.Listen)
	}
}

func TestLoadFromPath_RecordsEnvOverride(t *testing.T) {
	t.Setenv("TEST_AK", "ak")
	t.Setenv("DDNS_RECORDS", `[{"rr": "only", "ll": "fe80::abcd"}]`)

	cfg, err := LoadFromPath(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Records) != 1 {
		t.Fatalf("expected 1 record from env override, got %d", len(cfg.Records))
	}
	if cfg.Records[0].RR != "only" || cfg.Records[0].LL != "fe80::abcd" {
		t.Errorf("unexpected record: %+v", cfg.Records[0])
	}
}

func TestLoadFromPath_InvalidRecordsEnv(t *testing.T) {
	t.Setenv("DDNS_RECORDS", `not-json`)

	if _, err := LoadFromPath(writeConfig(t, validYAML)); err == nil {
		t.Fatal("expected error for invalid DDNS_RECORDS, got nil")
	}
}

func TestLoadFromPath_MissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no provider", "domain: example.com\napi_token: t\nrecords: [{rr: a, ll: fe80::1}]\n"},
		{"no domain", "provider: alidns\napi_token: t\nrecords: [{rr: a, ll: fe80::1}]\n"},
		{"no token", "provider: alidns\ndomain: example.com\nrecords: [{rr: a, ll: fe80::1}]\n"},
		{"no records", "provider: alidns\ndomain: example.com\napi_token: t\n"},
		{"record without rr", "provider: alidns\ndomain: example.com\napi_token: t\nrecords: [{ll: fe80::1}]\n"},
		{"record without ll", "provider: alidns\ndomain: example.com\napi_token: t\nrecords: [{rr: a}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromPath(writeConfig(t, tt.content)); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

// A malformed link-local string must load successfully: validating it is
// the orchestrator's job so the failure stays scoped to that one host.
func TestLoadFromPath_MalformedLinkLocalAccepted(t *testing.T) {
	content := `provider: alidns
domain: example.com
api_token: t
records:
  - rr: broken
    ll: not-an-address
`
	cfg, err := LoadFromPath(writeConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Records[0].LL != "not-an-address" {
		t.Errorf("unexpected ll: %q", cfg.Records[0].LL)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
