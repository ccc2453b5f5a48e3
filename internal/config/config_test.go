package config

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalYAML = `
elections:
  - name: board-2026
    extract_dir: /data/board
tally_command: agora-tally
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Elections) != 1 || cfg.Elections[0].Name != "board-2026" {
		t.Fatalf("unexpected elections: %+v", cfg.Elections)
	}
	if !cfg.MarkWinners || !cfg.ShowPercent || !cfg.IgnoreInvalidVotes {
		t.Fatalf("expected boolean defaults to be true: %+v", cfg)
	}
	if cfg.ResultsDir != "./results" || cfg.ReportOutputDir != "./reports" || cfg.DBPath != "./tallyreport.db" {
		t.Fatalf("unexpected path defaults: results=%q reports=%q db=%q", cfg.ResultsDir, cfg.ReportOutputDir, cfg.DBPath)
	}
	if len(cfg.ReportKinds) != 1 || cfg.ReportKinds[0] != "plurality" {
		t.Fatalf("unexpected report kinds default: %v", cfg.ReportKinds)
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
	if cfg.ExternalHTTPTimeout != 90*time.Second {
		t.Fatalf("unexpected external HTTP timeout default: %s", cfg.ExternalHTTPTimeout)
	}
	if cfg.SlackConfigured() {
		t.Fatal("slack should not be configured")
	}
	if got := cfg.ResultsPath(cfg.Elections[0]); got != filepath.Join("./results", "board-2026.json") {
		t.Fatalf("unexpected default results path: %s", got)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
elections:
  - name: board
    extract_dir: /data/board
    output_path: /out/board.json
  - name: budget
    extract_dir: /data/budget
results_dir: /yaml/results
report_kinds: [plurality, stv]
mark_winners: false
tally_command: yaml-tally
tally_args: ["--yaml"]
tally_timeout: 90s
db_path: /yaml/runs.db
timezone: America/Los_Angeles
`)
	t.Setenv("TALLY_COMMAND", "env-tally")
	t.Setenv("TALLY_ARGS", "--a,--b")
	t.Setenv("SHOW_PERCENT", "false")
	t.Setenv("DB_PATH", "/env/runs.db")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_CHANNEL_ID", "C123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TallyCommand != "env-tally" {
		t.Fatalf("expected tally command from env, got %q", cfg.TallyCommand)
	}
	if strings.Join(cfg.TallyArgs, " ") != "--a --b" {
		t.Fatalf("expected tally args from env, got %v", cfg.TallyArgs)
	}
	if cfg.TallyTimeout != 90*time.Second {
		t.Fatalf("expected tally timeout from yaml, got %s", cfg.TallyTimeout)
	}
	if cfg.MarkWinners || cfg.ShowPercent {
		t.Fatalf("expected mark_winners from yaml and show_percent from env to be false")
	}
	if cfg.DBPath != "/env/runs.db" {
		t.Fatalf("expected db path from env, got %q", cfg.DBPath)
	}
	if cfg.ResultsDir != "/yaml/results" {
		t.Fatalf("expected results dir from yaml, got %q", cfg.ResultsDir)
	}
	if len(cfg.ReportKinds) != 2 || cfg.ReportKinds[1] != "stv" {
		t.Fatalf("unexpected report kinds: %v", cfg.ReportKinds)
	}
	if !cfg.SlackConfigured() {
		t.Fatal("expected slack to be configured from env")
	}
	if got := cfg.ResultsPath(cfg.Elections[0]); got != "/out/board.json" {
		t.Fatalf("expected explicit output path, got %s", got)
	}
	if got := cfg.ResultsPath(cfg.Elections[1]); got != filepath.Join("/yaml/results", "budget.json") {
		t.Fatalf("unexpected derived output path: %s", got)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{name: "no elections", yaml: "tally_command: x\n", wantErr: "no elections"},
		{name: "missing tally command", yaml: "elections:\n  - name: a\n    extract_dir: /a\n", wantErr: "tally_command"},
		{name: "duplicate election", yaml: "elections:\n  - name: a\n    extract_dir: /a\n  - name: a\n    extract_dir: /b\ntally_command: x\n", wantErr: "duplicate"},
		{name: "missing extract dir", yaml: "elections:\n  - name: a\ntally_command: x\n", wantErr: "extract_dir"},
		{name: "path in name", yaml: "elections:\n  - name: ../a\n    extract_dir: /a\ntally_command: x\n", wantErr: "path separators"},
		{name: "unknown report kind", yaml: minimalYAML, env: map[string]string{"REPORT_KINDS": "borda"}, wantErr: "report kind"},
		{name: "bad locale", yaml: minimalYAML, env: map[string]string{"LOCALE": "not a locale!"}, wantErr: "locale"},
		{name: "slack half configured", yaml: minimalYAML, env: map[string]string{"SLACK_BOT_TOKEN": "xoxb"}, wantErr: "slack_channel_id"},
		{name: "summary without key", yaml: minimalYAML, env: map[string]string{"SUMMARY_ENABLED": "true"}, wantErr: "anthropic_api_key"},
		{name: "bad schedule", yaml: minimalYAML, env: map[string]string{"SCHEDULE": "every day"}, wantErr: "schedule"},
		{name: "bad timezone", yaml: minimalYAML, env: map[string]string{"TIMEZONE": "Mars/Colony"}, wantErr: "timezone"},
		{name: "negative timeout", yaml: minimalYAML, env: map[string]string{"TALLY_TIMEOUT": "-1s"}, wantErr: "tally_timeout"},
		{name: "short http timeout", yaml: minimalYAML, env: map[string]string{"EXTERNAL_HTTP_TIMEOUT": "1s"}, wantErr: "external_http_timeout"},
		{name: "bad bool env", yaml: minimalYAML, env: map[string]string{"MARK_WINNERS": "maybe"}, wantErr: "environment"},
		{name: "bad yaml", yaml: "elections: [", wantErr: "parsing"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule("0 9 * * 1")
	if err != nil {
		t.Fatalf("ParseSchedule failed: %v", err)
	}
	from := time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC) // Wednesday
	if next := sched.Next(from); !next.Equal(time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next run: %s", next)
	}
	if _, err := ParseSchedule("0 0 9 * * 1"); err == nil {
		t.Fatal("expected 6-field expression to be rejected")
	}
}

func TestLoadConfigMissingElectionsFatal(t *testing.T) {
	if os.Getenv("TEST_CONFIG_FATAL") == "1" {
		_ = os.Setenv("CONFIG_PATH", filepath.Join(os.TempDir(), "no-config.yaml"))
		_ = os.Setenv("TALLY_COMMAND", "agora-tally")
		LoadConfig()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestLoadConfigMissingElectionsFatal")
	cmd.Env = append(os.Environ(), "TEST_CONFIG_FATAL=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with failure")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got: %v", err)
	}
}
