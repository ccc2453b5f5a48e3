package report

import (
	"sort"
	"strconv"
)

// loserLabel prefixes non-winning answers when winners are marked.
const loserLabel = "N"

// RankedAnswer is an answer with the label it is printed under.
type RankedAnswer struct {
	Label  string
	Answer AnswerResult
}

// Percentage returns count as a percentage of base, or 0 when base is 0.
func Percentage(count, base int) float64 {
	if base == 0 {
		return 0
	}
	return float64(count) * 100.0 / float64(base)
}

// RankAnswers orders a question's answers for display. With markWinners,
// winners come first by ascending position and are numbered from 1, then
// the rest by descending count under the "N" label. Otherwise every answer
// is ordered by descending count and numbered. Ties keep stored order.
// The question itself is not modified.
func RankAnswers(q QuestionResult, markWinners bool) []RankedAnswer {
	if !markWinners {
		answers := append([]AnswerResult(nil), q.Answers...)
		sortByCount(answers)
		return numbered(answers)
	}

	var winners, losers []AnswerResult
	for _, a := range q.Answers {
		if a.IsWinner() {
			winners = append(winners, a)
		} else {
			losers = append(losers, a)
		}
	}
	sortByPosition(winners)
	sortByCount(losers)

	ranked := numbered(winners)
	for _, a := range losers {
		ranked = append(ranked, RankedAnswer{Label: loserLabel, Answer: a})
	}
	return ranked
}

// Winners returns only the winning answers, by ascending position.
func Winners(q QuestionResult) []AnswerResult {
	var winners []AnswerResult
	for _, a := range q.Answers {
		if a.IsWinner() {
			winners = append(winners, a)
		}
	}
	sortByPosition(winners)
	return winners
}

func numbered(answers []AnswerResult) []RankedAnswer {
	out := make([]RankedAnswer, 0, len(answers))
	for i, a := range answers {
		out = append(out, RankedAnswer{Label: strconv.Itoa(i + 1), Answer: a})
	}
	return out
}

func sortByCount(answers []AnswerResult) {
	sort.SliceStable(answers, func(i, j int) bool {
		return answers[i].TotalCount > answers[j].TotalCount
	})
}

func sortByPosition(answers []AnswerResult) {
	sort.SliceStable(answers, func(i, j int) bool {
		return *answers[i].WinnerPosition < *answers[j].WinnerPosition
	})
}
