package report

import (
	"errors"
	"fmt"
	"io"
	"log"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tallyreport/internal/domain"
)

// Options controls the plurality report.
type Options struct {
	MarkWinners bool
	ShowPercent bool
	// Locale, when set, formats numbers with that language's separators
	// (e.g. "es" prints 60,00%). Empty keeps plain formatting.
	Locale string
}

func DefaultOptions() Options {
	return Options{MarkWinners: true, ShowPercent: true}
}

// RenderSummary tells how many questions made it into a report and which
// were skipped because their results were malformed.
type RenderSummary struct {
	Rendered int
	Skipped  []error
}

type lineWriter struct {
	w       io.Writer
	sprintf func(format string, a ...any) string
	err     error
}

func newLineWriter(w io.Writer, locale string) (*lineWriter, error) {
	lw := &lineWriter{w: w, sprintf: fmt.Sprintf}
	if locale == "" {
		return lw, nil
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("report locale %q: %w", locale, err)
	}
	p := message.NewPrinter(tag)
	lw.sprintf = func(format string, a ...any) string { return p.Sprintf(format, a...) }
	return lw, nil
}

func (lw *lineWriter) line(format string, a ...any) {
	if lw.err != nil {
		return
	}
	_, lw.err = io.WriteString(lw.w, lw.sprintf(format, a...)+"\n")
}

func checkQuestion(kind string, i int, validate func(int) error, summary *RenderSummary) bool {
	if err := validate(i); err != nil {
		log.Printf("report skip kind=%s question=%d err=%v", kind, i, err)
		summary.Skipped = append(summary.Skipped, err)
		return false
	}
	return true
}

func checkDocument(doc *ResultsDocument) error {
	if doc == nil {
		return &domain.SchemaError{Question: -1, Field: "results", Reason: "no results to render"}
	}
	return doc.ValidateHeader()
}

// RenderPlurality writes the plurality-at-large report for every question
// of that tally type. Other questions are ignored. A malformed question is
// logged and skipped; a write failure aborts the report. Winner positions
// are only checked when they are marked.
func RenderPlurality(w io.Writer, doc *ResultsDocument, opts Options) (RenderSummary, error) {
	var summary RenderSummary
	if err := checkDocument(doc); err != nil {
		return summary, err
	}
	lw, err := newLineWriter(w, opts.Locale)
	if err != nil {
		return summary, err
	}

	total := doc.TotalVotes
	for i, q := range doc.Questions {
		if !hasKind(q, domain.TallyPluralityAtLarge) {
			continue
		}
		// Without winner marks positions are never printed.
		validate := q.ValidateCounts
		if opts.MarkWinners {
			validate = q.Validate
		}
		if !checkQuestion("plurality", i, validate, &summary) {
			continue
		}

		base := total
		if q.AnswerTotalVotesPercentage == domain.OverTotalValidVotes {
			base = q.Totals.ValidVotes
		}

		lw.line("\n\nQ: %s\n", q.Title)
		lw.line("Total votes: %d", total)
		lw.line("Blank votes: %d (%0.2f%%)", q.Totals.BlankVotes, Percentage(q.Totals.BlankVotes, total))
		lw.line("Null votes: %d (%0.2f%%)", q.Totals.NullVotes, Percentage(q.Totals.NullVotes, total))
		lw.line("Total valid votes (votes to options): %d (%0.2f%%)", q.Totals.ValidVotes, Percentage(q.Totals.ValidVotes, total))
		lw.line("\nOptions (percentages over %s):", string(q.AnswerTotalVotesPercentage))

		for _, r := range RankAnswers(q, opts.MarkWinners) {
			if opts.ShowPercent {
				lw.line("%s. %s (%d votes, %0.2f%%)", r.Label, r.Answer.Text, r.Answer.TotalCount, Percentage(r.Answer.TotalCount, base))
			} else {
				lw.line("%s. %s (%d votes)", r.Label, r.Answer.Text, r.Answer.TotalCount)
			}
		}
		if lw.err != nil {
			return summary, lw.err
		}
		summary.Rendered++
	}
	lw.line("")
	return summary, lw.err
}

// RenderSTV writes the winners of every STV question, preceded by the
// document's total vote count. Only the title, answer text and winner
// positions of a question need to be well formed.
func RenderSTV(w io.Writer, doc *ResultsDocument) (RenderSummary, error) {
	var summary RenderSummary
	if err := checkDocument(doc); err != nil {
		return summary, err
	}
	lw, _ := newLineWriter(w, "")

	lw.line("Total votes: %d\n", doc.TotalVotes)
	for i, q := range doc.Questions {
		if !hasKind(q, domain.TallySTV) {
			continue
		}
		if !checkQuestion("stv", i, q.ValidateWinners, &summary) {
			continue
		}
		lw.line("Q: %s\n", q.Title)
		for pos, a := range Winners(q) {
			lw.line("%d. %s", pos+1, a.Text)
		}
		if lw.err != nil {
			return summary, lw.err
		}
		summary.Rendered++
	}
	return summary, lw.err
}

// Kinds of report that can be requested by name.
const (
	KindPlurality = "plurality"
	KindSTV       = "stv"
)

var ErrUnknownKind = errors.New("unknown report kind")

// Render dispatches to the renderer for kind.
func Render(w io.Writer, kind string, doc *ResultsDocument, opts Options) (RenderSummary, error) {
	switch kind {
	case KindPlurality:
		return RenderPlurality(w, doc, opts)
	case KindSTV:
		return RenderSTV(w, doc)
	default:
		return RenderSummary{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
