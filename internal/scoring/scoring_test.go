package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/traitsurvey/internal/catalog"
	"github.com/pavelanni/traitsurvey/internal/model"
)

const testCatalog = `
choices:
  plus:
    - {text: "No", score: 1, color: 1}
    - {text: "Maybe", score: 3, color: 3}
    - {text: "Yes", score: 5, color: 5}
  minus:
    - {text: "No", score: 5, color: 1}
    - {text: "Maybe", score: 3, color: 3}
    - {text: "Yes", score: 1, color: 5}
categories:
  - id: X
    name: Ex
    description: x things
    observation_guide: {low: x-low, neutral: x-neutral, high: x-high}
    facets:
      - {index: 1, name: Sub1, description: first}
      - {index: 2, name: Sub2, description: second}
  - id: Y
    name: Why
    description: y things
    observation_guide: {low: y-low, neutral: y-neutral, high: y-high}
    facets:
      - {index: 3, name: Sub3, description: third}
      - {index: 1, name: Sub1y, description: first of y}
items:
  - {id: item1, text: one, keyed: plus, domain: X, facet: 1}
  - {id: item2, text: two, keyed: plus, domain: X, facet: 2}
  - {id: item3, text: three, keyed: minus, domain: Y, facet: 3}
  - {id: item4, text: four, keyed: plus, domain: Y, facet: 1}
  - {id: item5, text: five, keyed: plus, domain: Y, facet: 3}
`

func loadTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load(strings.NewReader(testCatalog))
	require.NoError(t, err)
	return c
}

func find(t *testing.T, scores []model.CategoryScore, id model.CategoryID) model.CategoryScore {
	t.Helper()
	for _, s := range scores {
		if s.Category == id {
			return s
		}
	}
	t.Fatalf("category %q not in result", id)
	return model.CategoryScore{}
}

func TestInterpretThresholds(t *testing.T) {
	tests := []struct {
		name     string
		score    int
		maxScore int
		want     model.Band
	}{
		{"nothing answered", 0, 0, model.BandNeutral},
		{"just below low", 34, 100, model.BandLow},
		{"at low threshold", 35, 100, model.BandNeutral},
		{"at high threshold", 85, 100, model.BandNeutral},
		{"just above high", 86, 100, model.BandHigh},
		{"zero score", 0, 40, model.BandLow},
		{"full score", 40, 40, model.BandHigh},
		{"over maximum", 5, 4, model.BandHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interpret(tt.score, tt.maxScore))
		})
	}
}

func TestComputeSingleAnswerExceedsMaximum(t *testing.T) {
	c := loadTestCatalog(t)

	scores := Compute(c, []model.Answer{{ItemID: "item1", Score: 5}})
	x := find(t, scores, "X")

	// One item adds 4 to the maximum while its raw value can reach 5; the
	// result is left unclamped.
	assert.Equal(t, 5, x.Score)
	assert.Equal(t, 4, x.MaxScore)
	assert.Equal(t, model.BandHigh, x.Band)
	assert.Equal(t, "x-high", x.Interpretation)
	assert.Equal(t, 125, x.Percent())
	require.Len(t, x.SubScores, 1)
	assert.Equal(t, model.SubCategoryScore{
		SubCategory: 1, Name: "Sub1", Score: 5, MaxScore: 4, Description: "first",
	}, x.SubScores[0])
}

func TestComputeNoAnswers(t *testing.T) {
	c := loadTestCatalog(t)

	scores := Compute(c, nil)
	require.Len(t, scores, 2)
	for _, s := range scores {
		assert.Zero(t, s.Score)
		assert.Zero(t, s.MaxScore)
		assert.Equal(t, model.BandNeutral, s.Band)
		assert.NotNil(t, s.SubScores)
		assert.Empty(t, s.SubScores)
	}
	assert.Equal(t, "x-neutral", scores[0].Interpretation)
}

func TestComputeCatalogOrder(t *testing.T) {
	c := loadTestCatalog(t)

	// Answer order is the reverse of catalog order.
	scores := Compute(c, []model.Answer{
		{ItemID: "item5", Score: 2},
		{ItemID: "item4", Score: 3},
		{ItemID: "item3", Score: 4},
		{ItemID: "item1", Score: 1},
	})
	require.Len(t, scores, 2)
	assert.Equal(t, model.CategoryID("X"), scores[0].Category)
	assert.Equal(t, model.CategoryID("Y"), scores[1].Category)

	y := scores[1]
	assert.Equal(t, 9, y.Score)
	assert.Equal(t, 12, y.MaxScore)
	require.Len(t, y.SubScores, 2)
	assert.Equal(t, 1, y.SubScores[0].SubCategory)
	assert.Equal(t, "Sub1y", y.SubScores[0].Name)
	assert.Equal(t, 3, y.SubScores[0].Score)
	assert.Equal(t, 3, y.SubScores[1].SubCategory)
	assert.Equal(t, 6, y.SubScores[1].Score)
	assert.Equal(t, 8, y.SubScores[1].MaxScore)
}

func TestComputeSkipsUnansweredFacets(t *testing.T) {
	c := loadTestCatalog(t)

	scores := Compute(c, []model.Answer{{ItemID: "item2", Score: 3}})
	x := find(t, scores, "X")
	require.Len(t, x.SubScores, 1)
	assert.Equal(t, 2, x.SubScores[0].SubCategory)

	y := find(t, scores, "Y")
	assert.Empty(t, y.SubScores)
}

func TestComputeIgnoresUnknownItems(t *testing.T) {
	c := loadTestCatalog(t)

	base := []model.Answer{{ItemID: "item1", Score: 3}}
	withUnknown := append([]model.Answer{{ItemID: "nope", Score: 5, Category: "X", SubCategory: 1}}, base...)

	assert.NotPanics(t, func() { Compute(c, withUnknown) })
	assert.Equal(t, Compute(c, base), Compute(c, withUnknown))
}

func TestComputeUsesCatalogCategory(t *testing.T) {
	c := loadTestCatalog(t)

	// The answer claims item1 belongs to Y/3; the catalog says X/1.
	scores := Compute(c, []model.Answer{{ItemID: "item1", Score: 2, Category: "Y", SubCategory: 3}})

	x := find(t, scores, "X")
	assert.Equal(t, 2, x.Score)
	require.Len(t, x.SubScores, 1)
	assert.Equal(t, 1, x.SubScores[0].SubCategory)

	y := find(t, scores, "Y")
	assert.Zero(t, y.Score)
	assert.Zero(t, y.MaxScore)
}

func TestComputeMonotonic(t *testing.T) {
	c := loadTestCatalog(t)

	answers := []model.Answer{{ItemID: "item3", Score: 2}}
	before := find(t, Compute(c, answers), "Y")

	for s := 1; s <= 5; s++ {
		after := find(t, Compute(c, append(answers, model.Answer{ItemID: "item4", Score: s})), "Y")
		assert.GreaterOrEqual(t, after.Score, before.Score)
		assert.Equal(t, before.MaxScore+MaxPointsPerItem, after.MaxScore)
	}
}

func TestComputeBounds(t *testing.T) {
	c := loadTestCatalog(t)

	answers := []model.Answer{
		{ItemID: "item1", Score: 1},
		{ItemID: "item2", Score: 1},
		{ItemID: "item3", Score: 3},
		{ItemID: "item4", Score: 1},
		{ItemID: "item5", Score: 3},
	}
	for _, cs := range Compute(c, answers) {
		assert.GreaterOrEqual(t, cs.Score, 0)
		assert.LessOrEqual(t, cs.Score, cs.MaxScore, cs.Category)
		for _, sub := range cs.SubScores {
			assert.GreaterOrEqual(t, sub.Score, 0)
			assert.LessOrEqual(t, sub.Score, sub.MaxScore)
		}
	}
}

func TestComputeIdempotent(t *testing.T) {
	c := loadTestCatalog(t)
	answers := []model.Answer{
		{ItemID: "item1", Score: 4},
		{ItemID: "item3", Score: 2},
		{ItemID: "item5", Score: 5},
	}

	first := Compute(c, answers)
	second := Compute(c, answers)
	assert.Equal(t, first, second)

	// Mutating a result must not leak into the next computation.
	first[0].SubScores[0].Score = 99
	assert.Equal(t, second, Compute(c, answers))
}

func TestComputeDefaultCatalog(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	var answers []model.Answer
	for _, it := range c.Items() {
		a, err := c.NewAnswer(it.ID, 3)
		require.NoError(t, err)
		answers = append(answers, a)
	}

	scores := Compute(c, answers)
	require.Len(t, scores, 5)
	for _, s := range scores {
		assert.Equal(t, 12*MaxPointsPerItem, s.MaxScore)
		assert.Equal(t, 36, s.Score)
		assert.Equal(t, model.BandNeutral, s.Band)
		assert.Len(t, s.SubScores, 6)
	}
}
