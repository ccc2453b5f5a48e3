package domain

import "time"

// Run is one archived tally of an election: what was tallied, what came
// out, and where it was published.
type Run struct {
	ID          string
	Election    string
	ExtractDir  string
	TotalVotes  int
	ResultsJSON string
	LogsJSON    string
	Report      string
	Summary     string

	SlackChannel string
	SlackTS      string

	CreatedAt time.Time
}

func (r Run) Published() bool {
	return r.SlackTS != ""
}
