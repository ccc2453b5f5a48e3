package report

import (
	"tallyreport/internal/domain"
)

type ResultsDocument = domain.ResultsDocument
type QuestionResult = domain.QuestionResult
type AnswerResult = domain.AnswerResult

func hasKind(q QuestionResult, tallyType string) bool {
	return q.HasTallyType(tallyType)
}
