package bot

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `
telegram:
  token: "123:abc"
funnel:
  channel: samtexsockss
database:
  host: localhost
`

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.RunMode != "longpoll" {
		t.Fatalf("run_mode = %q, want longpoll", cfg.Telegram.RunMode)
	}
	if cfg.Funnel.Channel != "@samtexsockss" {
		t.Fatalf("channel = %q, want @samtexsockss", cfg.Funnel.Channel)
	}
	if cfg.Funnel.FollowupDelaySeconds != 600 {
		t.Fatalf("followup_delay_seconds = %d, want 600", cfg.Funnel.FollowupDelaySeconds)
	}
	if cfg.Sheets.Enabled() {
		t.Fatal("sheets sink enabled without a spreadsheet id")
	}
}

func TestLoadConfigRequiresToken(t *testing.T) {
	path := writeConfig(t, `
funnel:
  channel: "@c"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing telegram token")
	}
}

func TestLoadConfigRequiresChannel(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing funnel channel")
	}
}
