package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	TallyPluralityAtLarge = "plurality-at-large"
	TallySTV              = "stv"
)

// PercentageBase selects what answer percentages are computed over.
type PercentageBase string

const (
	OverTotalVotes      PercentageBase = "over-total-votes"
	OverTotalValidVotes PercentageBase = "over-total-valid-votes"
)

func (b PercentageBase) Valid() bool {
	return b == OverTotalVotes || b == OverTotalValidVotes
}

// ResultsDocument is the aggregate produced by the tally for one election.
type ResultsDocument struct {
	TotalVotes int              `json:"total_votes"`
	Questions  []QuestionResult `json:"questions"`

	extras  extraFields
	missing []string
}

type QuestionResult struct {
	Title                      string         `json:"title"`
	TallyType                  string         `json:"tally_type"`
	AnswerTotalVotesPercentage PercentageBase `json:"answer_total_votes_percentage"`
	Totals                     Totals         `json:"totals"`
	Answers                    []AnswerResult `json:"answers"`

	extras  extraFields
	missing []string
	// raw and decodeErr are set when the question could not be decoded;
	// raw is written back unchanged.
	raw       json.RawMessage
	decodeErr error
}

type Totals struct {
	ValidVotes int `json:"valid_votes"`
	BlankVotes int `json:"blank_votes"`
	NullVotes  int `json:"null_votes"`

	extras  extraFields
	missing []string
}

// AnswerResult is one option of a question. WinnerPosition is nil for
// answers that were not elected.
type AnswerResult struct {
	Text           string `json:"text"`
	TotalCount     int    `json:"total_count"`
	WinnerPosition *int   `json:"winner_position"`

	extras  extraFields
	missing []string
	// noWinnerKey records a decoded answer without a winner_position
	// member, so encoding omits it instead of writing null.
	noWinnerKey bool
}

// HasTallyType reports whether the question belongs to the given tally
// category. Categories match by substring, so "stv" also selects variants
// such as "wright-stv".
func (q QuestionResult) HasTallyType(category string) bool {
	return strings.Contains(q.TallyType, category)
}

func (a AnswerResult) IsWinner() bool {
	return a.WinnerPosition != nil
}

// WinnerAt is a convenience for building answers in code.
func WinnerAt(pos int) *int {
	return &pos
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func (d *ResultsDocument) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*d = ResultsDocument{missing: []string{"total_votes", "questions"}}
		return nil
	}
	var p struct {
		TotalVotes int               `json:"total_votes"`
		Questions  []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = ResultsDocument{TotalVotes: p.TotalVotes}
	if p.Questions != nil {
		d.Questions = make([]QuestionResult, len(p.Questions))
		for i, raw := range p.Questions {
			d.Questions[i] = decodeQuestion(raw)
		}
	}
	d.extras = collectExtras(data, "total_votes", "questions")
	d.missing = missingKeys(data, "total_votes", "questions")
	return nil
}

// decodeQuestion decodes one question. A question whose members have the
// wrong JSON types is kept with its title and tally type so validation can
// report it without rejecting its neighbours.
func decodeQuestion(raw json.RawMessage) QuestionResult {
	var q QuestionResult
	if err := json.Unmarshal(raw, &q); err != nil {
		return QuestionResult{
			Title:     gjson.GetBytes(raw, "title").String(),
			TallyType: gjson.GetBytes(raw, "tally_type").String(),
			raw:       append(json.RawMessage(nil), raw...),
			decodeErr: err,
		}
	}
	return q
}

func (d ResultsDocument) MarshalJSON() ([]byte, error) {
	type plain ResultsDocument
	p := plain(d)
	if p.Questions == nil {
		p.Questions = []QuestionResult{}
	}
	out, err := marshalLiteral(p)
	if err != nil {
		return nil, err
	}
	return d.extras.mergeInto(out)
}

func (q *QuestionResult) UnmarshalJSON(data []byte) error {
	type plain QuestionResult
	known := []string{"title", "tally_type", "answer_total_votes_percentage", "totals", "answers"}
	if isNull(data) {
		*q = QuestionResult{missing: known}
		return nil
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*q = QuestionResult(p)
	q.extras = collectExtras(data, known...)
	q.missing = missingKeys(data, known...)
	return nil
}

func (q QuestionResult) MarshalJSON() ([]byte, error) {
	if q.raw != nil {
		return q.raw, nil
	}
	type plain QuestionResult
	p := plain(q)
	if p.Answers == nil {
		p.Answers = []AnswerResult{}
	}
	out, err := marshalLiteral(p)
	if err != nil {
		return nil, err
	}
	return q.extras.mergeInto(out)
}

func (t *Totals) UnmarshalJSON(data []byte) error {
	type plain Totals
	known := []string{"valid_votes", "blank_votes", "null_votes"}
	if isNull(data) {
		*t = Totals{missing: known}
		return nil
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Totals(p)
	t.extras = collectExtras(data, known...)
	t.missing = missingKeys(data, known...)
	return nil
}

func (t Totals) MarshalJSON() ([]byte, error) {
	type plain Totals
	out, err := marshalLiteral(plain(t))
	if err != nil {
		return nil, err
	}
	return t.extras.mergeInto(out)
}

func (a *AnswerResult) UnmarshalJSON(data []byte) error {
	type plain AnswerResult
	if isNull(data) {
		*a = AnswerResult{missing: []string{"text", "total_count"}}
		return nil
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = AnswerResult(p)
	a.extras = collectExtras(data, "text", "total_count", "winner_position")
	a.missing = missingKeys(data, "text", "total_count")
	a.noWinnerKey = !gjson.GetBytes(data, "winner_position").Exists()
	return nil
}

func (a AnswerResult) MarshalJSON() ([]byte, error) {
	type plain AnswerResult
	out, err := marshalLiteral(plain(a))
	if err != nil {
		return nil, err
	}
	if a.noWinnerKey && a.WinnerPosition == nil {
		if out, err = sjson.DeleteBytes(out, "winner_position"); err != nil {
			return nil, err
		}
	}
	return a.extras.mergeInto(out)
}

// DecodeResults parses a results document. Syntax errors are reported as
// *DecodeError; a document without its top-level fields as *SchemaError.
// Question-level problems, wrongly typed members included, are left for
// Validate so one bad question does not reject the whole document.
func DecodeResults(data []byte) (*ResultsDocument, error) {
	var doc ResultsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if len(doc.missing) > 0 {
		return nil, &SchemaError{Question: -1, Field: doc.missing[0], Reason: "required field is missing"}
	}
	return &doc, nil
}
