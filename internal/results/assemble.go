package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/tidwall/gjson"

	"tallyreport/internal/domain"
	"tallyreport/internal/tally"
)

type ElectionRecord = domain.ElectionRecord

// ReadQuestions loads the question description of an extraction directory.
// The file must hold a JSON array; its elements are passed to the tally
// untouched.
func ReadQuestions(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, &domain.DecodeError{Path: path, Err: errors.New("invalid JSON")}
	}
	list := gjson.ParseBytes(data)
	if !list.IsArray() {
		return nil, &domain.DecodeError{Path: path, Err: errors.New("expected a list of questions")}
	}
	questions := []json.RawMessage{}
	list.ForEach(func(_, q gjson.Result) bool {
		questions = append(questions, json.RawMessage(q.Raw))
		return true
	})
	return questions, nil
}

// ComputeResults tallies every record in order and stores the results and
// per-question logs on it. The first failure stops the batch; records
// already processed keep their results.
func ComputeResults(ctx context.Context, records []*ElectionRecord, tallier tally.Tallier, ignoreInvalidVotes bool) error {
	for i, rec := range records {
		questions, err := ReadQuestions(rec.QuestionsPath())
		if err != nil {
			return fmt.Errorf("record %d (%s): %w", i, rec.Name, err)
		}
		log.Printf("tally start record=%s dir=%s questions=%d ignore_invalid=%t", rec.Name, rec.ExtractDir, len(questions), ignoreInvalidVotes)

		out, err := tallier.Tally(ctx, rec.ExtractDir, questions, ignoreInvalidVotes)
		if err != nil {
			return fmt.Errorf("record %d (%s): tally: %w", i, rec.Name, err)
		}
		if out.Results == nil {
			return fmt.Errorf("record %d (%s): tally returned no results", i, rec.Name)
		}
		rec.Results = out.Results
		rec.Log = out.Logs
		log.Printf("tally done record=%s total_votes=%d questions=%d", rec.Name, rec.Results.TotalVotes, len(rec.Results.Questions))
	}
	return nil
}
