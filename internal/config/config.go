package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

// Election is one tally job: the extraction directory holding the
// questions file and ballots, and where its results file goes.
type Election struct {
	Name       string `yaml:"name"`
	ExtractDir string `yaml:"extract_dir"`
	OutputPath string `yaml:"output_path"`
}

type Config struct {
	Elections []Election `yaml:"elections" env:"-"`

	ResultsDir      string   `yaml:"results_dir" env:"RESULTS_DIR"`
	ReportOutputDir string   `yaml:"report_output_dir" env:"REPORT_OUTPUT_DIR"`
	ReportKinds     []string `yaml:"report_kinds" env:"REPORT_KINDS" envSeparator:","`
	MarkWinners     bool     `yaml:"mark_winners" env:"MARK_WINNERS"`
	ShowPercent     bool     `yaml:"show_percent" env:"SHOW_PERCENT"`
	Locale          string   `yaml:"locale" env:"LOCALE"`

	IgnoreInvalidVotes bool          `yaml:"ignore_invalid_votes" env:"IGNORE_INVALID_VOTES"`
	TallyCommand       string        `yaml:"tally_command" env:"TALLY_COMMAND"`
	TallyArgs          []string      `yaml:"tally_args" env:"TALLY_ARGS" envSeparator:","`
	TallyTimeout       time.Duration `yaml:"tally_timeout" env:"TALLY_TIMEOUT"`

	DBPath              string        `yaml:"db_path" env:"DB_PATH"`
	ExternalHTTPTimeout time.Duration `yaml:"external_http_timeout" env:"EXTERNAL_HTTP_TIMEOUT"`

	SlackBotToken      string `yaml:"slack_bot_token" env:"SLACK_BOT_TOKEN"`
	SlackChannelID     string `yaml:"slack_channel_id" env:"SLACK_CHANNEL_ID"`
	SlackUploadResults bool   `yaml:"slack_upload_results" env:"SLACK_UPLOAD_RESULTS"`

	SummaryEnabled  bool   `yaml:"summary_enabled" env:"SUMMARY_ENABLED"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	LLMModel        string `yaml:"llm_model" env:"LLM_MODEL"`

	Schedule string `yaml:"schedule" env:"SCHEDULE"`
	Timezone string `yaml:"timezone" env:"TIMEZONE"`

	Location *time.Location `yaml:"-" env:"-"` // computed from Timezone
}

// LoadConfig reads configuration and exits the process when it is unusable.
func LoadConfig() Config {
	configPath := defaultConfigPath
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return cfg
}

// Load builds a Config from the YAML file at path (skipped when absent),
// then environment variables, then defaults, and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{
		MarkWinners:        true,
		ShowPercent:        true,
		IgnoreInvalidVotes: true,
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		log.Printf("Loaded config from %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid environment override: %w", err)
	}

	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "./results"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if len(cfg.ReportKinds) == 0 {
		cfg.ReportKinds = []string{"plurality"}
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./tallyreport.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.ExternalHTTPTimeout == 0 {
		cfg.ExternalHTTPTimeout = 90 * time.Second
	}
	for i := range cfg.ReportKinds {
		cfg.ReportKinds[i] = strings.ToLower(strings.TrimSpace(cfg.ReportKinds[i]))
	}
}

func (c *Config) validate() error {
	if len(c.Elections) == 0 {
		return errors.New("no elections configured (set 'elections' in config.yaml)")
	}
	seen := make(map[string]bool)
	for i, e := range c.Elections {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("elections[%d]: name is required", i)
		}
		if seen[e.Name] {
			return fmt.Errorf("elections[%d]: duplicate name '%s'", i, e.Name)
		}
		if strings.ContainsAny(e.Name, `/\`) {
			return fmt.Errorf("elections[%d]: name '%s' must not contain path separators", i, e.Name)
		}
		seen[e.Name] = true
		if e.ExtractDir == "" {
			return fmt.Errorf("elections[%d] (%s): extract_dir is required", i, e.Name)
		}
	}

	if c.TallyCommand == "" {
		return errors.New("required config 'tally_command' is not set (via config.yaml or env var)")
	}
	if c.TallyTimeout < 0 {
		return fmt.Errorf("invalid tally_timeout '%s': must be >= 0", c.TallyTimeout)
	}

	for _, kind := range c.ReportKinds {
		if kind != "plurality" && kind != "stv" {
			return fmt.Errorf("invalid report kind '%s': must be 'plurality' or 'stv'", kind)
		}
	}
	if c.Locale != "" {
		if _, err := language.Parse(c.Locale); err != nil {
			return fmt.Errorf("invalid locale '%s': %w", c.Locale, err)
		}
	}

	if (c.SlackBotToken == "") != (c.SlackChannelID == "") {
		return errors.New("slack_bot_token and slack_channel_id must be set together")
	}
	if c.ExternalHTTPTimeout < 5*time.Second {
		return fmt.Errorf("invalid external_http_timeout '%s': must be >= 5s", c.ExternalHTTPTimeout)
	}
	if c.SummaryEnabled && c.AnthropicAPIKey == "" {
		return errors.New("anthropic_api_key is required when summary_enabled is true")
	}

	if c.Schedule != "" {
		if _, err := ParseSchedule(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule '%s': %w", c.Schedule, err)
		}
	}

	if strings.EqualFold(c.Timezone, "Local") {
		c.Location = time.Local
	} else {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", c.Timezone, err)
		}
		c.Location = loc
	}
	return nil
}

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(spec)
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

// ResultsPath is where an election's results file is written: its
// output_path when set, otherwise <results_dir>/<name>.json.
func (c Config) ResultsPath(e Election) string {
	if e.OutputPath != "" {
		return e.OutputPath
	}
	return filepath.Join(c.ResultsDir, e.Name+".json")
}
