// Package nlu implements filter extraction and intent classification
// for natural-language inventory queries.
package nlu

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocab.yaml
var defaultVocabYAML []byte

// vocabFile is the on-disk YAML shape.
type vocabFile struct {
	Categories map[string][]string `yaml:"categories"`
	Locations  []string            `yaml:"locations"`
	Conditions map[string][]string `yaml:"conditions"`
}

// Vocabulary holds the configurable lexicons the extractor matches
// against: category synonyms, household locations and condition terms.
type Vocabulary struct {
	categoryRe  *regexp.Regexp
	locationRe  *regexp.Regexp
	conditionRe *regexp.Regexp

	categoryOf  map[string]string // synonym -> canonical category
	conditionOf map[string]string // synonym -> canonical condition
}

// DefaultVocabulary returns the vocabulary compiled from the embedded
// default lexicon.
func DefaultVocabulary() *Vocabulary {
	v, err := parseVocabulary(defaultVocabYAML)
	if err != nil {
		// The embedded file is part of the build; a parse failure here
		// is a programming error.
		panic(fmt.Sprintf("nlu: embedded vocabulary: %v", err))
	}
	return v
}

// LoadVocabulary reads a YAML lexicon from path.
func LoadVocabulary(path string) (*Vocabulary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	v, err := parseVocabulary(b)
	if err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return v, nil
}

func parseVocabulary(b []byte) (*Vocabulary, error) {
	var vf vocabFile
	if err := yaml.Unmarshal(b, &vf); err != nil {
		return nil, err
	}

	v := &Vocabulary{
		categoryOf:  map[string]string{},
		conditionOf: map[string]string{},
	}

	var catTerms []string
	for canonical, synonyms := range vf.Categories {
		terms := append([]string{canonical}, synonyms...)
		for _, t := range terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			v.categoryOf[t] = canonical
			catTerms = append(catTerms, t)
		}
	}
	v.categoryRe = termsRegexp(catTerms)

	var locTerms []string
	for _, t := range vf.Locations {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			locTerms = append(locTerms, t)
		}
	}
	v.locationRe = termsRegexp(locTerms)

	var condTerms []string
	for canonical, synonyms := range vf.Conditions {
		terms := append([]string{canonical}, synonyms...)
		for _, t := range terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			v.conditionOf[t] = canonical
			condTerms = append(condTerms, t)
		}
	}
	v.conditionRe = termsRegexp(condTerms)

	return v, nil
}

// termsRegexp builds a word-bounded alternation. Longer terms sort
// first so "living room" wins over "room".
func termsRegexp(terms []string) *regexp.Regexp {
	if len(terms) == 0 {
		return nil
	}
	sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
}

// Category resolves a matched term to its canonical category.
func (v *Vocabulary) Category(term string) (string, bool) {
	c, ok := v.categoryOf[strings.ToLower(term)]
	return c, ok
}

// Condition resolves a matched term to its canonical condition.
func (v *Vocabulary) Condition(term string) (string, bool) {
	c, ok := v.conditionOf[strings.ToLower(term)]
	return c, ok
}
