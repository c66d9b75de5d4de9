// Package scoring turns recorded answers into per-category and per-facet
// scores and classifies each category into a band.
package scoring

import (
	"sort"

	"github.com/pavelanni/traitsurvey/internal/catalog"
	"github.com/pavelanni/traitsurvey/internal/model"
)

// MaxPointsPerItem is what one answered item adds to a maximum score.
const MaxPointsPerItem = 4

// Band thresholds as a share of the maximum score. They apply to every
// category alike.
const (
	LowThreshold  = 0.35
	HighThreshold = 0.85
)

// Interpret classifies a score. A zero maximum means nothing was answered
// and is reported as neutral. Scores above the maximum are not clamped.
func Interpret(score, maxScore int) model.Band {
	if maxScore == 0 {
		return model.BandNeutral
	}
	pct := float64(score) / float64(maxScore)
	switch {
	case pct < LowThreshold:
		return model.BandLow
	case pct > HighThreshold:
		return model.BandHigh
	default:
		return model.BandNeutral
	}
}

type bucket struct {
	score    int
	maxScore int
	answered int
}

type categoryTally struct {
	info model.CategoryInfo
	bucket
	subs map[int]*bucket
}

// Compute aggregates answers against the catalog. It returns one entry per
// catalog category, in catalog order. Answers for unknown items are
// dropped. Category and facet come from the catalog item, never from the
// answer's own copies of those fields.
func Compute(cat *catalog.Catalog, answers []model.Answer) []model.CategoryScore {
	cats := cat.Categories()
	tallies := make(map[model.CategoryID]*categoryTally, len(cats))
	for _, info := range cats {
		tallies[info.ID] = &categoryTally{info: info, subs: make(map[int]*bucket)}
	}

	for _, a := range answers {
		item, ok := cat.Item(a.ItemID)
		if !ok {
			continue
		}
		t, ok := tallies[item.Category]
		if !ok {
			continue
		}
		t.add(a.Score)
		if _, known := t.info.SubCategory(item.SubCategory); !known {
			continue
		}
		sub, ok := t.subs[item.SubCategory]
		if !ok {
			sub = &bucket{}
			t.subs[item.SubCategory] = sub
		}
		sub.add(a.Score)
	}

	out := make([]model.CategoryScore, 0, len(cats))
	for _, info := range cats {
		out = append(out, tallies[info.ID].result())
	}
	return out
}

func (b *bucket) add(score int) {
	b.score += score
	b.maxScore += MaxPointsPerItem
	b.answered++
}

func (t *categoryTally) result() model.CategoryScore {
	band := Interpret(t.score, t.maxScore)
	cs := model.CategoryScore{
		Category:       t.info.ID,
		Name:           t.info.Name,
		Score:          t.score,
		MaxScore:       t.maxScore,
		Band:           band,
		Description:    t.info.Description,
		Guide:          t.info.Guide,
		Interpretation: t.info.Guide.For(band),
		SubScores:      []model.SubCategoryScore{},
	}

	indexes := make([]int, 0, len(t.subs))
	for idx, b := range t.subs {
		if b.answered > 0 {
			indexes = append(indexes, idx)
		}
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		info, _ := t.info.SubCategory(idx)
		b := t.subs[idx]
		cs.SubScores = append(cs.SubScores, model.SubCategoryScore{
			SubCategory: idx,
			Name:        info.Name,
			Score:       b.score,
			MaxScore:    b.maxScore,
			Description: info.Description,
		})
	}
	return cs
}
