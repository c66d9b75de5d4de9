package model

// CategoryID identifies one of the top-level trait groupings.
type CategoryID string

// Polarity tells whether agreement with an item raises (direct) or lowers
// (inverse) its raw score.
type Polarity string

const (
	PolarityDirect  Polarity = "plus"
	PolarityInverse Polarity = "minus"
)

// Valid reports whether p is a known polarity.
func (p Polarity) Valid() bool {
	return p == PolarityDirect || p == PolarityInverse
}

// Item is an immutable questionnaire entry.
type Item struct {
	ID          string     `json:"id" yaml:"id"`
	Text        string     `json:"text" yaml:"text"`
	Polarity    Polarity   `json:"keyed" yaml:"keyed"`
	Category    CategoryID `json:"domain" yaml:"domain"`
	SubCategory int        `json:"facet" yaml:"facet"`
}

// Choice is one selectable response to an item.
type Choice struct {
	Label string `json:"text" yaml:"text"`
	Value int    `json:"score" yaml:"score"`
	// Tone is the display shade, 1 (strong disagreement) to 5 (strong agreement).
	Tone int `json:"color" yaml:"color"`
}

// ChoiceSet holds the ordered responses offered for each polarity. Both
// sequences share labels and order; only the values differ, which encodes
// reverse-scored items without special-casing them downstream.
type ChoiceSet struct {
	Direct  []Choice `json:"plus" yaml:"plus"`
	Inverse []Choice `json:"minus" yaml:"minus"`
}

// For returns the choices offered for the given polarity.
func (cs ChoiceSet) For(p Polarity) []Choice {
	if p == PolarityInverse {
		return cs.Inverse
	}
	return cs.Direct
}

// Valid reports whether value is offered for the given polarity.
func (cs ChoiceSet) Valid(p Polarity, value int) bool {
	for _, c := range cs.For(p) {
		if c.Value == value {
			return true
		}
	}
	return false
}

// Answer is one recorded response. Category and SubCategory are
// denormalized copies of the item's fields; scoring ignores them in favor
// of the catalog entry.
type Answer struct {
	ItemID      string     `json:"item_id" yaml:"item_id"`
	Score       int        `json:"score" yaml:"score"`
	Category    CategoryID `json:"domain,omitempty" yaml:"domain,omitempty"`
	SubCategory int        `json:"facet,omitempty" yaml:"facet,omitempty"`
}

// ObservationGuide describes what each band looks like in the classroom.
type ObservationGuide struct {
	Low     string `json:"low" yaml:"low"`
	Neutral string `json:"neutral" yaml:"neutral"`
	High    string `json:"high" yaml:"high"`
}

// For returns the guide text for a band.
func (g ObservationGuide) For(b Band) string {
	switch b {
	case BandLow:
		return g.Low
	case BandHigh:
		return g.High
	default:
		return g.Neutral
	}
}

// SubCategoryInfo is the display metadata of a facet.
type SubCategoryInfo struct {
	Index       int    `json:"index" yaml:"index"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// CategoryInfo is the display metadata of a trait grouping.
type CategoryInfo struct {
	ID            CategoryID        `json:"id" yaml:"id"`
	Name          string            `json:"name" yaml:"name"`
	Description   string            `json:"description" yaml:"description"`
	Guide         ObservationGuide  `json:"observation_guide" yaml:"observation_guide"`
	SubCategories []SubCategoryInfo `json:"facets" yaml:"facets"`
}

// SubCategory returns the facet with the given index.
func (c CategoryInfo) SubCategory(index int) (SubCategoryInfo, bool) {
	for _, s := range c.SubCategories {
		if s.Index == index {
			return s, true
		}
	}
	return SubCategoryInfo{}, false
}

// Band is the qualitative classification of a category score.
type Band string

const (
	BandLow     Band = "low"
	BandNeutral Band = "neutral"
	BandHigh    Band = "high"
)

// SubCategoryScore is the computed result for one facet.
type SubCategoryScore struct {
	SubCategory int    `json:"facet" yaml:"facet"`
	Name        string `json:"name" yaml:"name"`
	Score       int    `json:"score" yaml:"score"`
	MaxScore    int    `json:"max_score" yaml:"max_score"`
	Description string `json:"description" yaml:"description"`
}

// CategoryScore is the computed result for one trait grouping.
type CategoryScore struct {
	Category       CategoryID         `json:"domain" yaml:"domain"`
	Name           string             `json:"name" yaml:"name"`
	Score          int                `json:"score" yaml:"score"`
	MaxScore       int                `json:"max_score" yaml:"max_score"`
	Band           Band               `json:"band" yaml:"band"`
	Description    string             `json:"description" yaml:"description"`
	Guide          ObservationGuide   `json:"observation_guide" yaml:"observation_guide"`
	Interpretation string             `json:"interpretation" yaml:"interpretation"`
	SubScores      []SubCategoryScore `json:"facets" yaml:"facets"`
}

// Percent returns score as a whole percentage of the maximum, 0 when
// nothing was answered. It is not clamped.
func (c CategoryScore) Percent() int {
	return percent(c.Score, c.MaxScore)
}

// Percent returns score as a whole percentage of the maximum.
func (s SubCategoryScore) Percent() int {
	return percent(s.Score, s.MaxScore)
}

func percent(score, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	return score * 100 / maxScore
}

// Summary is the narrative written for a scored report.
type Summary struct {
	Text      string   `json:"summary"`
	Strengths []string `json:"strengths"`
	Support   []string `json:"support"`
}
