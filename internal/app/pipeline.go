package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"tallyreport/internal/config"
	"tallyreport/internal/domain"
	llm "tallyreport/internal/integrations/llm"
	slackbot "tallyreport/internal/integrations/slack"
	"tallyreport/internal/report"
	"tallyreport/internal/results"
	"tallyreport/internal/storage/sqlite"
	"tallyreport/internal/tally"
)

type Config = config.Config

type reportPublisher interface {
	Publish(ctx context.Context, pub slackbot.Publication) (string, error)
	Channel() string
}

type reportSummarizer interface {
	Summarize(ctx context.Context, election, report string) (string, llm.LLMUsage, error)
}

// Deps are the collaborators of a batch run. Only Tallier is required.
type Deps struct {
	Tallier    tally.Tallier
	DB         *sql.DB
	Publisher  reportPublisher
	Summarizer reportSummarizer
	Stdout     io.Writer
	Now        func() time.Time
}

// ElectionOutcome is what a batch run produced for one election.
type ElectionOutcome struct {
	Name        string
	ResultsPath string
	ReportPath  string
	RunID       string
	Rendered    int
	Skipped     []error
	Summary     string
	SlackTS     string
	PublishErr  error
}

type BatchSummary struct {
	Elections []ElectionOutcome
	Tokens    int64
}

// RunBatch tallies every configured election, writes the results files,
// renders and stores the reports, and archives and publishes each run.
// Tallying and writing are all-or-nothing per batch; summary and
// publication failures are logged and recorded on the outcome.
func RunBatch(ctx context.Context, cfg Config, deps Deps) (BatchSummary, error) {
	var summary BatchSummary
	if deps.Stdout == nil {
		deps.Stdout = io.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	started := deps.Now().In(loc)

	records := make([]*domain.ElectionRecord, 0, len(cfg.Elections))
	paths := make([]string, 0, len(cfg.Elections))
	for _, e := range cfg.Elections {
		path := cfg.ResultsPath(e)
		records = append(records, &domain.ElectionRecord{Name: e.Name, ExtractDir: e.ExtractDir, OutputPath: path})
		paths = append(paths, path)
	}
	log.Printf("batch start elections=%d", len(records))

	if err := results.ComputeResults(ctx, records, deps.Tallier, cfg.IgnoreInvalidVotes); err != nil {
		return summary, fmt.Errorf("computing results: %w", err)
	}
	if err := results.WriteResults(records, paths); err != nil {
		return summary, fmt.Errorf("writing results: %w", err)
	}

	opts := report.Options{MarkWinners: cfg.MarkWinners, ShowPercent: cfg.ShowPercent, Locale: cfg.Locale}
	for _, rec := range records {
		outcome := ElectionOutcome{Name: rec.Name, ResultsPath: rec.OutputPath}

		text, err := renderReports(rec, cfg.ReportKinds, opts, &outcome)
		if err != nil {
			return summary, fmt.Errorf("rendering report for %s: %w", rec.Name, err)
		}
		if _, err := io.WriteString(deps.Stdout, text); err != nil {
			return summary, fmt.Errorf("printing report for %s: %w", rec.Name, err)
		}
		outcome.ReportPath, err = report.WriteReportFile(text, cfg.ReportOutputDir, started, rec.Name)
		if err != nil {
			return summary, fmt.Errorf("saving report for %s: %w", rec.Name, err)
		}

		if deps.DB != nil {
			run, err := archiveRun(deps.DB, rec, text, started)
			if err != nil {
				return summary, fmt.Errorf("archiving run for %s: %w", rec.Name, err)
			}
			outcome.RunID = run.ID
		}

		if deps.Summarizer != nil {
			s, usage, err := deps.Summarizer.Summarize(ctx, rec.Name, text)
			summary.Tokens += usage.TotalTokens()
			if err != nil {
				log.Printf("summary error election=%s err=%v", rec.Name, err)
			} else {
				outcome.Summary = s
				if deps.DB != nil {
					if err := sqlite.UpdateRunSummary(deps.DB, outcome.RunID, s); err != nil {
						log.Printf("summary archive error election=%s err=%v", rec.Name, err)
					}
				}
			}
		}

		if deps.Publisher != nil {
			publish(ctx, cfg, deps, rec, text, &outcome)
		}

		summary.Elections = append(summary.Elections, outcome)
	}
	log.Printf("batch done elections=%d tokens=%d", len(summary.Elections), summary.Tokens)
	return summary, nil
}

func renderReports(rec *domain.ElectionRecord, kinds []string, opts report.Options, outcome *ElectionOutcome) (string, error) {
	var buf bytes.Buffer
	for _, kind := range kinds {
		rs, err := report.Render(&buf, kind, rec.Results, opts)
		if err != nil {
			return "", err
		}
		outcome.Rendered += rs.Rendered
		outcome.Skipped = append(outcome.Skipped, rs.Skipped...)
	}
	log.Printf("report rendered election=%s questions=%d skipped=%d", rec.Name, outcome.Rendered, len(outcome.Skipped))
	return buf.String(), nil
}

func archiveRun(db *sql.DB, rec *domain.ElectionRecord, text string, at time.Time) (domain.Run, error) {
	resultsJSON, err := results.EncodeResults(rec.Results)
	if err != nil {
		return domain.Run{}, err
	}
	logs := rec.Log
	if logs == nil {
		logs = []json.RawMessage{}
	}
	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return domain.Run{}, err
	}
	run, err := sqlite.InsertRun(db, domain.Run{
		Election:    rec.Name,
		ExtractDir:  rec.ExtractDir,
		TotalVotes:  rec.Results.TotalVotes,
		ResultsJSON: string(resultsJSON),
		LogsJSON:    string(logsJSON),
		Report:      text,
		CreatedAt:   at.UTC(),
	})
	if err != nil {
		return domain.Run{}, err
	}
	log.Printf("run archived election=%s id=%s", rec.Name, run.ID)
	return run, nil
}

func publish(ctx context.Context, cfg Config, deps Deps, rec *domain.ElectionRecord, text string, outcome *ElectionOutcome) {
	pub := slackbot.Publication{Election: rec.Name, Report: text, Summary: outcome.Summary}
	if cfg.SlackUploadResults {
		pub.ResultsPath = rec.OutputPath
	}
	ts, err := deps.Publisher.Publish(ctx, pub)
	outcome.SlackTS = ts
	if err != nil {
		log.Printf("publish error election=%s err=%v", rec.Name, err)
		outcome.PublishErr = err
	}
	if ts != "" && deps.DB != nil && outcome.RunID != "" {
		if err := sqlite.MarkRunPublished(deps.DB, outcome.RunID, deps.Publisher.Channel(), ts); err != nil {
			log.Printf("publish archive error election=%s err=%v", rec.Name, err)
		}
	}
}
