// Package mixer assembles an exam from raw per-category sheet rows:
// a stratified random sample (per-category shuffle plus quota) followed by a
// second shuffle across the combined set, so the final order carries no
// category grouping signal.
package mixer

import (
	"math/rand/v2"
	"time"

	"github.com/ngochuy/onthisu/internal/model"
)

// NewRand returns a time-seeded random source for production mixing.
// Tests pass their own seeded source instead.
func NewRand() *rand.Rand {
	now := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(now, now>>32))
}

// Mix samples and shuffles questions out of the given per-category rows.
// Each category present is shuffled, capped at its quota (all rows if fewer)
// and mapped to typed questions; the combined list is then shuffled again.
// Categories absent from the map, or with no rows, contribute nothing.
func Mix(rows map[model.Category][][]string, rng *rand.Rand) []model.Question {
	var mixed []model.Question
	for _, cat := range model.Categories() {
		catRows := rows[cat]
		if len(catRows) == 0 {
			continue
		}
		selected := shuffleRows(catRows, rng)
		if quota := model.Quota(cat); len(selected) > quota {
			selected = selected[:quota]
		}
		for _, r := range selected {
			mixed = append(mixed, mapRow(cat, r))
		}
	}
	shuffleQuestions(mixed, rng)
	return mixed
}

// shuffleRows returns a uniformly random permutation of rows, leaving the
// input untouched. Standard Fisher-Yates, last index down to 1.
func shuffleRows(rows [][]string, rng *rand.Rand) [][]string {
	out := make([][]string, len(rows))
	copy(out, rows)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func shuffleQuestions(qs []model.Question, rng *rand.Rand) {
	for i := len(qs) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}

// mapRow converts one raw row into a typed question by positional column
// mapping. Short rows are padded with empty strings, never an error.
func mapRow(cat model.Category, row []string) model.Question {
	if cat == model.CategoryTrueFalse {
		return model.Question{
			Type:     cat,
			Question: cell(row, 0),
			OptionA:  cell(row, 1),
			AnswerA:  cell(row, 2),
			OptionB:  cell(row, 3),
			AnswerB:  cell(row, 4),
			OptionC:  cell(row, 5),
			AnswerC:  cell(row, 6),
			OptionD:  cell(row, 7),
			AnswerD:  cell(row, 8),
			Explain:  cell(row, 9),
		}
	}
	return model.Question{
		Type:     cat,
		Question: cell(row, 0),
		OptionA:  cell(row, 1),
		OptionB:  cell(row, 2),
		OptionC:  cell(row, 3),
		OptionD:  cell(row, 4),
		Answer:   cell(row, 5),
	}
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
