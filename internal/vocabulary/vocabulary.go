// Package vocabulary loads the versioned condition vocabulary used by the
// engine: condition synonyms, ingredient interaction classes, symptom terms
// and stopwords. A default table is embedded in the binary; a YAML file with
// the same layout can replace it.
package vocabulary

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/pharmassist-medsafety/internal/domain"
)

//go:embed conditions.yaml
var defaultTable []byte

// Condition describes one canonical condition tag.
type Condition struct {
	Tag       domain.ConditionTag `yaml:"tag"`
	Display   string              `yaml:"display"`
	Synonyms  []string            `yaml:"synonyms"`
	Rationale string              `yaml:"rationale"`
	Warning   string              `yaml:"warning"`

	phrases []string
}

// Phrases returns the normalized phrases that identify the condition,
// including the tag itself written as words.
func (c *Condition) Phrases() []string {
	return c.phrases
}

// IngredientClass groups active ingredients that share interaction risks.
type IngredientClass struct {
	Class      string                `yaml:"class"`
	Members    []string              `yaml:"members"`
	Conditions []domain.ConditionTag `yaml:"conditions"`

	members []string
}

// Table is a loaded, validated vocabulary. It is immutable after Load.
type Table struct {
	Version           string              `yaml:"version"`
	Conditions        []Condition         `yaml:"conditions"`
	IngredientClasses []IngredientClass   `yaml:"ingredient_classes"`
	SymptomTerms      map[string][]string `yaml:"symptom_terms"`
	Stopwords         []string            `yaml:"stopwords"`

	order     []domain.ConditionTag
	byTag     map[domain.ConditionTag]int
	stopwords map[string]struct{}
	related   map[string][]string
}

var (
	defaultOnce  sync.Once
	defaultValue *Table
	defaultErr   error
)

// Default returns the embedded vocabulary table.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultValue, defaultErr = Load(defaultTable)
	})
	return defaultValue, defaultErr
}

// LoadFile reads and validates a vocabulary table from path.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	return Load(data)
}

// Resolve returns the table at path, or the embedded default when path is
// empty.
func Resolve(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return LoadFile(path)
}

// Load parses and validates a YAML vocabulary table.
func Load(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary: %w", err)
	}
	if err := t.prepare(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Table) prepare() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("vocabulary version is required")
	}
	if len(t.Conditions) == 0 {
		return fmt.Errorf("vocabulary must define at least one condition")
	}

	t.byTag = make(map[domain.ConditionTag]int, len(t.Conditions))
	t.order = make([]domain.ConditionTag, 0, len(t.Conditions))
	for i := range t.Conditions {
		c := &t.Conditions[i]
		if !c.Tag.IsValid() {
			return fmt.Errorf("unknown condition tag %q", c.Tag)
		}
		if _, dup := t.byTag[c.Tag]; dup {
			return fmt.Errorf("duplicate condition tag %q", c.Tag)
		}
		if strings.TrimSpace(c.Display) == "" {
			c.Display = c.Tag.Phrase()
		}
		if strings.TrimSpace(c.Rationale) == "" {
			return fmt.Errorf("condition %q has no rationale", c.Tag)
		}
		if len(c.Synonyms) == 0 {
			return fmt.Errorf("condition %q has no synonyms", c.Tag)
		}

		c.phrases = uniqueNormalized(append([]string{c.Tag.Phrase()}, c.Synonyms...))
		t.byTag[c.Tag] = i
		t.order = append(t.order, c.Tag)
	}

	seenClass := make(map[string]struct{}, len(t.IngredientClasses))
	for i := range t.IngredientClasses {
		ic := &t.IngredientClasses[i]
		if strings.TrimSpace(ic.Class) == "" {
			return fmt.Errorf("ingredient class %d has no name", i)
		}
		if _, dup := seenClass[ic.Class]; dup {
			return fmt.Errorf("duplicate ingredient class %q", ic.Class)
		}
		seenClass[ic.Class] = struct{}{}
		for _, tag := range ic.Conditions {
			if _, ok := t.byTag[tag]; !ok {
				return fmt.Errorf("ingredient class %q references undefined condition %q", ic.Class, tag)
			}
		}
		ic.members = uniqueNormalized(append([]string{ic.Class}, ic.Members...))
		if len(ic.members) == 0 {
			return fmt.Errorf("ingredient class %q has no members", ic.Class)
		}
	}

	t.stopwords = make(map[string]struct{}, len(t.Stopwords))
	for _, w := range t.Stopwords {
		if n := Normalize(w); n != "" {
			t.stopwords[n] = struct{}{}
		}
	}

	t.related = make(map[string][]string, len(t.SymptomTerms))
	for term, related := range t.SymptomTerms {
		key := Normalize(term)
		if key == "" {
			continue
		}
		t.related[key] = uniqueNormalized(related)
	}
	return nil
}

// Order returns the tags in vocabulary order.
func (t *Table) Order() []domain.ConditionTag {
	return t.order
}

// Condition returns the definition of tag.
func (t *Table) Condition(tag domain.ConditionTag) (*Condition, bool) {
	i, ok := t.byTag[tag]
	if !ok {
		return nil, false
	}
	return &t.Conditions[i], true
}

// Display returns the human-readable name of tag.
func (t *Table) Display(tag domain.ConditionTag) string {
	if c, ok := t.Condition(tag); ok {
		return c.Display
	}
	return tag.Phrase()
}

// IsStopword reports whether a normalized token carries no clinical meaning.
func (t *Table) IsStopword(token string) bool {
	_, ok := t.stopwords[token]
	return ok
}

// RelatedTerms returns the normalized terms that count as a match for a
// symptom keyword.
func (t *Table) RelatedTerms(keyword string) []string {
	return t.related[keyword]
}

// ClassesFor returns every ingredient class whose members appear in the
// normalized ingredient text, in table order.
func (t *Table) ClassesFor(normalizedIngredient string) []*IngredientClass {
	if normalizedIngredient == "" {
		return nil
	}
	var out []*IngredientClass
	for i := range t.IngredientClasses {
		ic := &t.IngredientClasses[i]
		for _, m := range ic.members {
			if ContainsPhrase(normalizedIngredient, m) {
				out = append(out, ic)
				break
			}
		}
	}
	return out
}

// Normalize lowercases text, replaces every rune that is not a letter or
// digit with a space and collapses runs of whitespace.
func Normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(mapped), " ")
}

// ContainsPhrase reports whether phrase occurs in text on word boundaries.
// Both arguments must already be normalized.
func ContainsPhrase(text, phrase string) bool {
	if text == "" || phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

func uniqueNormalized(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		n := Normalize(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
