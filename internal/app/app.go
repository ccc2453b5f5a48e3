package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"

	"tallyreport/internal/config"
	"tallyreport/internal/httpx"
	llm "tallyreport/internal/integrations/llm"
	slackbot "tallyreport/internal/integrations/slack"
	"tallyreport/internal/schedule"
	"tallyreport/internal/storage/sqlite"
	"tallyreport/internal/tally"
)

func Main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARNING: could not load .env: %v", err)
	}

	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeout)
	log.Printf(
		"Config loaded. Elections=%d ReportKinds=%s MarkWinners=%t ShowPercent=%t Locale=%q Schedule=%q Timezone=%s Slack=%t Summary=%t ExternalHTTPTimeout=%s",
		len(cfg.Elections),
		strings.Join(cfg.ReportKinds, ","),
		cfg.MarkWinners,
		cfg.ShowPercent,
		cfg.Locale,
		cfg.Schedule,
		cfg.Timezone,
		cfg.SlackConfigured(),
		cfg.SummaryEnabled,
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	if len(os.Args) > 1 && os.Args[1] == "history" {
		if err := runHistory(os.Stdout, db, os.Args[2:]); err != nil {
			log.Fatalf("history: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := NewDeps(cfg, db)
	if _, err := RunBatch(ctx, cfg, deps); err != nil {
		log.Fatalf("Batch failed: %v", err)
	}
	if cfg.Schedule == "" {
		return
	}

	sched, err := config.ParseSchedule(cfg.Schedule)
	if err != nil {
		log.Fatalf("invalid schedule '%s': %v", cfg.Schedule, err)
	}
	err = schedule.New(cfg.Schedule, sched, cfg.Location).Run(ctx, func(ctx context.Context) error {
		_, err := RunBatch(ctx, cfg, deps)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Scheduler error: %v", err)
	}
	log.Println("Shutting down")
}

// NewDeps wires the production collaborators for cfg.
func NewDeps(cfg Config, db *sql.DB) Deps {
	deps := Deps{
		Tallier: tally.ExecTallier{
			Command: cfg.TallyCommand,
			Args:    cfg.TallyArgs,
			Timeout: cfg.TallyTimeout,
		},
		DB:     db,
		Stdout: os.Stdout,
	}
	if cfg.SlackConfigured() {
		deps.Publisher = slackbot.NewPublisher(cfg.SlackBotToken, cfg.SlackChannelID)
	}
	if cfg.SummaryEnabled {
		deps.Summarizer = llm.Summarizer{APIKey: cfg.AnthropicAPIKey, Model: cfg.LLMModel}
	}
	return deps
}

// runHistory prints the archived runs of one election:
// history <election> [limit]
func runHistory(w io.Writer, db *sql.DB, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: history <election> [limit]")
	}
	limit := 10
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid limit %q", args[1])
		}
		limit = n
	}
	runs, err := sqlite.ListRunsByElection(db, args[0], limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs archived for %s.\n", args[0])
		return nil
	}
	for _, r := range runs {
		published := "not published"
		if r.Published() {
			published = "published to " + r.SlackChannel
		}
		fmt.Fprintf(w, "%s  %s  %s votes  %s  (%s)\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), humanize.Comma(int64(r.TotalVotes)),
			published, humanize.Time(r.CreatedAt))
	}
	return nil
}
