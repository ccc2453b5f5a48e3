package domain

import (
	"encoding/json"
	"path/filepath"
)

// QuestionsFile is the question description every extraction directory
// carries next to the ballots.
const QuestionsFile = "questions_json"

// ElectionRecord is one election's working data for a batch. Results and
// Log are filled in by the tally step and read-only afterwards.
type ElectionRecord struct {
	Name       string
	ExtractDir string
	OutputPath string

	Results *ResultsDocument
	Log     []json.RawMessage
}

func (r *ElectionRecord) QuestionsPath() string {
	return filepath.Join(r.ExtractDir, QuestionsFile)
}
