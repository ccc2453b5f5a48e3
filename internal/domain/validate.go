package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Validate checks one question of a results document for the plurality
// report with winners marked: ValidateCounts plus ValidateWinners. index is
// the question's position, used in the returned *SchemaError.
func (q QuestionResult) Validate(index int) error {
	if err := q.ValidateCounts(index); err != nil {
		return err
	}
	return q.ValidateWinners(index)
}

// ValidateCounts checks what a report built from vote counts reads: the
// totals, the percentage base and every answer's text and count. Winner
// positions are not looked at.
func (q QuestionResult) ValidateCounts(index int) error {
	if err := q.checkDecoded(index); err != nil {
		return err
	}
	fail := q.failer(index)
	if len(q.missing) > 0 {
		return fail(q.missing[0], "required field is missing")
	}
	if len(q.Totals.missing) > 0 {
		return fail("totals."+q.Totals.missing[0], "required field is missing")
	}
	if !q.AnswerTotalVotesPercentage.Valid() {
		return fail("answer_total_votes_percentage", fmt.Sprintf("unknown percentage base %q", q.AnswerTotalVotesPercentage))
	}
	if q.Totals.ValidVotes < 0 || q.Totals.BlankVotes < 0 || q.Totals.NullVotes < 0 {
		return fail("totals", "vote counts must not be negative")
	}
	for i, a := range q.Answers {
		if len(a.missing) > 0 {
			return fail(fmt.Sprintf("answers[%d].%s", i, a.missing[0]), "required field is missing")
		}
		if a.TotalCount < 0 {
			return fail(fmt.Sprintf("answers[%d].total_count", i), "must not be negative")
		}
	}
	return nil
}

// ValidateWinners checks what a winners-only report reads: the title, the
// answers' text and winner positions that are at least 1 and not repeated.
// Dense ranking is not required.
func (q QuestionResult) ValidateWinners(index int) error {
	if err := q.checkDecoded(index); err != nil {
		return err
	}
	fail := q.failer(index)
	for _, key := range q.missing {
		if key == "title" || key == "answers" {
			return fail(key, "required field is missing")
		}
	}
	seen := make(map[int]bool)
	for i, a := range q.Answers {
		for _, key := range a.missing {
			if key == "text" {
				return fail(fmt.Sprintf("answers[%d].text", i), "required field is missing")
			}
		}
		if a.WinnerPosition == nil {
			continue
		}
		pos := *a.WinnerPosition
		if pos < 1 {
			return fail(fmt.Sprintf("answers[%d].winner_position", i), fmt.Sprintf("position %d is below 1", pos))
		}
		if seen[pos] {
			return fail(fmt.Sprintf("answers[%d].winner_position", i), fmt.Sprintf("position %d is used twice", pos))
		}
		seen[pos] = true
	}
	return nil
}

func (q QuestionResult) failer(index int) func(field, reason string) error {
	return func(field, reason string) error {
		return &SchemaError{Question: index, Title: q.Title, Field: field, Reason: reason}
	}
}

// checkDecoded reports a question whose members had the wrong JSON types.
func (q QuestionResult) checkDecoded(index int) error {
	if q.decodeErr == nil {
		return nil
	}
	field := "question"
	var typeErr *json.UnmarshalTypeError
	if errors.As(q.decodeErr, &typeErr) && typeErr.Field != "" {
		field = typeErr.Field
	}
	return q.failer(index)(field, q.decodeErr.Error())
}

// ValidateHeader checks the document-level fields only, leaving questions
// to be validated one by one.
func (d ResultsDocument) ValidateHeader() error {
	if len(d.missing) > 0 {
		return &SchemaError{Question: -1, Field: d.missing[0], Reason: "required field is missing"}
	}
	if d.TotalVotes < 0 {
		return &SchemaError{Question: -1, Field: "total_votes", Reason: "must not be negative"}
	}
	return nil
}

// Validate checks the document and every question, returning the first
// problem found.
func (d ResultsDocument) Validate() error {
	if err := d.ValidateHeader(); err != nil {
		return err
	}
	for i, q := range d.Questions {
		if err := q.Validate(i); err != nil {
			return err
		}
	}
	return nil
}
