// Package catalog holds the immutable questionnaire: the items, the choice
// sets offered for each polarity and the category/facet metadata used to
// label scores.
package catalog

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/traitsurvey/internal/model"
)

//go:embed default.yaml
var defaultYAML []byte

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// file is the on-disk layout of a catalog.
type file struct {
	Choices    model.ChoiceSet      `yaml:"choices"`
	Categories []model.CategoryInfo `yaml:"categories"`
	Items      []model.Item         `yaml:"items"`
}

// Catalog is safe for concurrent use; nothing mutates it after Load.
type Catalog struct {
	choices    model.ChoiceSet
	categories []model.CategoryInfo
	items      []model.Item
	itemIdx    map[string]int
	catIdx     map[model.CategoryID]int
	hash       string
}

// Default returns the embedded catalog. It is parsed once per process.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = parse(defaultYAML)
		if defaultErr != nil {
			defaultErr = fmt.Errorf("embedded catalog: %w", defaultErr)
		}
	})
	return defaultCat, defaultErr
}

// LoadFile reads a catalog from a YAML file. An empty path selects the
// embedded catalog.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load reads and validates a catalog from YAML.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	sum := sha256.Sum256(data)
	c := &Catalog{
		choices:    f.Choices,
		categories: f.Categories,
		items:      f.Items,
		itemIdx:    make(map[string]int, len(f.Items)),
		catIdx:     make(map[model.CategoryID]int, len(f.Categories)),
		hash:       hex.EncodeToString(sum[:]),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if err := validateChoices(c.choices); err != nil {
		return err
	}
	if len(c.categories) == 0 {
		return errors.New("catalog has no categories")
	}
	for i, cat := range c.categories {
		if cat.ID == "" {
			return fmt.Errorf("category #%d has no id", i+1)
		}
		if _, dup := c.catIdx[cat.ID]; dup {
			return fmt.Errorf("duplicate category %q", cat.ID)
		}
		if len(cat.SubCategories) == 0 {
			return fmt.Errorf("category %q has no facets", cat.ID)
		}
		seen := make(map[int]bool, len(cat.SubCategories))
		for _, sub := range cat.SubCategories {
			if seen[sub.Index] {
				return fmt.Errorf("category %q: duplicate facet %d", cat.ID, sub.Index)
			}
			seen[sub.Index] = true
		}
		c.catIdx[cat.ID] = i
	}
	if len(c.items) == 0 {
		return errors.New("catalog has no items")
	}
	for i, it := range c.items {
		if it.ID == "" {
			return fmt.Errorf("item #%d has no id", i+1)
		}
		if _, dup := c.itemIdx[it.ID]; dup {
			return fmt.Errorf("duplicate item %q", it.ID)
		}
		if !it.Polarity.Valid() {
			return fmt.Errorf("item %q: unknown keying %q", it.ID, it.Polarity)
		}
		ci, ok := c.catIdx[it.Category]
		if !ok {
			return fmt.Errorf("item %q: unknown domain %q", it.ID, it.Category)
		}
		if _, ok := c.categories[ci].SubCategory(it.SubCategory); !ok {
			return fmt.Errorf("item %q: domain %q has no facet %d", it.ID, it.Category, it.SubCategory)
		}
		c.itemIdx[it.ID] = i
	}
	return nil
}

func validateChoices(cs model.ChoiceSet) error {
	if len(cs.Direct) == 0 {
		return errors.New("catalog has no choices")
	}
	if len(cs.Direct) != len(cs.Inverse) {
		return fmt.Errorf("choice sets differ in length: plus=%d minus=%d", len(cs.Direct), len(cs.Inverse))
	}
	for _, set := range [][]model.Choice{cs.Direct, cs.Inverse} {
		for _, ch := range set {
			if ch.Value < 1 || ch.Value > 5 {
				return fmt.Errorf("choice %q: score %d out of range 1..5", ch.Label, ch.Value)
			}
		}
	}
	return nil
}

// Hash is the SHA-256 of the source document.
func (c *Catalog) Hash() string { return c.hash }

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Choices returns the choice sets.
func (c *Catalog) Choices() model.ChoiceSet {
	return model.ChoiceSet{
		Direct:  append([]model.Choice(nil), c.choices.Direct...),
		Inverse: append([]model.Choice(nil), c.choices.Inverse...),
	}
}

// Categories returns the category metadata in catalog order.
func (c *Catalog) Categories() []model.CategoryInfo {
	out := make([]model.CategoryInfo, len(c.categories))
	for i, cat := range c.categories {
		cat.SubCategories = append([]model.SubCategoryInfo(nil), cat.SubCategories...)
		out[i] = cat
	}
	return out
}

// Category returns the metadata of one category.
func (c *Catalog) Category(id model.CategoryID) (model.CategoryInfo, bool) {
	i, ok := c.catIdx[id]
	if !ok {
		return model.CategoryInfo{}, false
	}
	cat := c.categories[i]
	cat.SubCategories = append([]model.SubCategoryInfo(nil), cat.SubCategories...)
	return cat, true
}

// Items returns every item in questionnaire order.
func (c *Catalog) Items() []model.Item {
	return append([]model.Item(nil), c.items...)
}

// Item looks up an item by id.
func (c *Catalog) Item(id string) (model.Item, bool) {
	i, ok := c.itemIdx[id]
	if !ok {
		return model.Item{}, false
	}
	return c.items[i], true
}

// ItemAt returns the item at a zero-based questionnaire position.
func (c *Catalog) ItemAt(n int) (model.Item, bool) {
	if n < 0 || n >= len(c.items) {
		return model.Item{}, false
	}
	return c.items[n], true
}

// ItemIndex returns the questionnaire position of an item, or -1.
func (c *Catalog) ItemIndex(id string) int {
	i, ok := c.itemIdx[id]
	if !ok {
		return -1
	}
	return i
}

// NewAnswer builds an Answer for an item, filling the denormalized fields
// from the catalog. It fails when the item is unknown or the value is not
// offered for the item's polarity.
func (c *Catalog) NewAnswer(itemID string, value int) (model.Answer, error) {
	it, ok := c.Item(itemID)
	if !ok {
		return model.Answer{}, fmt.Errorf("unknown item %q", itemID)
	}
	if !c.choices.Valid(it.Polarity, value) {
		return model.Answer{}, fmt.Errorf("item %q: score %d is not an offered choice", itemID, value)
	}
	return model.Answer{
		ItemID:      it.ID,
		Score:       value,
		Category:    it.Category,
		SubCategory: it.SubCategory,
	}, nil
}
