package sqlite

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"tallyreport/internal/domain"
)

type Run = domain.Run

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		election      TEXT NOT NULL,
		extract_dir   TEXT NOT NULL,
		total_votes   INTEGER NOT NULL DEFAULT 0,
		results_json  TEXT NOT NULL,
		logs_json     TEXT NOT NULL DEFAULT '[]',
		report        TEXT NOT NULL DEFAULT '',
		summary       TEXT NOT NULL DEFAULT '',
		slack_channel TEXT NOT NULL DEFAULT '',
		slack_ts      TEXT NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_election ON runs(election, created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InsertRun archives a run. A missing ID or CreatedAt is filled in; the
// stored run is returned.
func InsertRun(db *sql.DB, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.LogsJSON == "" {
		run.LogsJSON = "[]"
	}
	_, err := db.Exec(
		`INSERT INTO runs (id, election, extract_dir, total_votes, results_json, logs_json, report, summary, slack_channel, slack_ts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Election, run.ExtractDir, run.TotalVotes, run.ResultsJSON, run.LogsJSON,
		run.Report, run.Summary, run.SlackChannel, run.SlackTS, run.CreatedAt,
	)
	return run, err
}

const runColumns = `id, election, extract_dir, total_votes, results_json, logs_json, report, summary, slack_channel, slack_ts, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID, &run.Election, &run.ExtractDir, &run.TotalVotes, &run.ResultsJSON, &run.LogsJSON,
		&run.Report, &run.Summary, &run.SlackChannel, &run.SlackTS, &run.CreatedAt,
	)
	return run, err
}

// GetRun returns sql.ErrNoRows when no run has the given ID.
func GetRun(db *sql.DB, id string) (Run, error) {
	return scanRun(db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
}

// LatestRun returns the most recent run of an election, or sql.ErrNoRows.
func LatestRun(db *sql.DB, election string) (Run, error) {
	return scanRun(db.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE election = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		election,
	))
}

// ListRunsByElection returns an election's runs, newest first. limit <= 0
// means no limit.
func ListRunsByElection(db *sql.DB, election string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(
		`SELECT `+runColumns+` FROM runs WHERE election = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		election, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func UpdateRunSummary(db *sql.DB, id, summary string) error {
	_, err := db.Exec(`UPDATE runs SET summary = ? WHERE id = ?`, summary, id)
	return err
}

func MarkRunPublished(db *sql.DB, id, channel, ts string) error {
	_, err := db.Exec(`UPDATE runs SET slack_channel = ?, slack_ts = ? WHERE id = ?`, channel, ts, id)
	return err
}
