package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	naturaldate "github.com/tj/go-naturaldate"

	"packrat/internal/model"
)

// Extractor pulls structured slots out of raw text. Extraction never
// fails; a slot that cannot be found is simply absent from the result.
//
// Two strategies are combined per slot: regex/lexicon matching for
// prices, dates and vocabulary terms, and entity cues from the Parser
// for locations and item mentions. When candidates compete for a slot,
// the more specific pattern wins, then the textually rightmost match;
// later mentions model corrections ("no, actually $50").
type Extractor struct {
	vocab  *Vocabulary
	parser Parser
	now    func() time.Time
}

// NewExtractor builds an extractor. A nil vocabulary or parser falls
// back to the embedded defaults.
func NewExtractor(vocab *Vocabulary, parser Parser) *Extractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if parser == nil {
		parser = SimpleParser{}
	}
	return &Extractor{vocab: vocab, parser: parser, now: time.Now}
}

// Extract returns the filter set found in text.
func (e *Extractor) Extract(text string) model.FilterSet {
	f := model.FilterSet{}
	if strings.TrimSpace(text) == "" {
		return f
	}
	lower := strings.ToLower(text)

	e.extractVocab(lower, f)
	e.extractAcquisition(lower, f)
	e.extractPrices(lower, f)
	e.extractDates(lower, f)
	e.extractEntities(text, f)
	e.extractKeyed(lower, f)
	return f
}

// ---- vocabulary slots ----

func (e *Extractor) extractVocab(lower string, f model.FilterSet) {
	if e.vocab.categoryRe != nil {
		if m := lastMatch(e.vocab.categoryRe, lower); m != "" {
			if c, ok := e.vocab.Category(m); ok {
				f[model.SlotCategory] = c
			}
		}
	}
	if e.vocab.locationRe != nil {
		if m := lastMatch(e.vocab.locationRe, lower); m != "" {
			f[model.SlotLocation] = m
		}
	}
	if e.vocab.conditionRe != nil {
		if m := lastMatch(e.vocab.conditionRe, lower); m != "" {
			if c, ok := e.vocab.Condition(m); ok {
				f[model.SlotCondition] = c
			}
		}
	}
}

// ---- acquisition type ----

var acquisitionPatterns = []struct {
	re *regexp.Regexp
	t  model.AcquisitionType
}{
	{regexp.MustCompile(`\b(bought|purchased)\b`), model.AcquisitionPurchased},
	{regexp.MustCompile(`\b(gave\s+me|gifted|as\s+a\s+gift|gift)\b`), model.AcquisitionGift},
	{regexp.MustCompile(`\btraded?\b`), model.AcquisitionTrade},
	{regexp.MustCompile(`\bfound\b`), model.AcquisitionFound},
	{regexp.MustCompile(`\bborrowed\b`), model.AcquisitionBorrowed},
	{regexp.MustCompile(`\binherited\b`), model.AcquisitionInherited},
	{regexp.MustCompile(`\b(made|built)\b`), model.AcquisitionMade},
	{regexp.MustCompile(`\bwon\b`), model.AcquisitionWon},
	{regexp.MustCompile(`\blost\b`), model.AcquisitionLost},
	{regexp.MustCompile(`\b(threw\s+away|tossed\s+out|donated|disposed)\b`), model.AcquisitionDisposed},
}

func (e *Extractor) extractAcquisition(lower string, f model.FilterSet) {
	best := -1
	var bestType model.AcquisitionType
	for _, p := range acquisitionPatterns {
		locs := p.re.FindAllStringIndex(lower, -1)
		if len(locs) == 0 {
			continue
		}
		if pos := locs[len(locs)-1][0]; pos > best {
			best = pos
			bestType = p.t
		}
	}
	if best >= 0 {
		f[model.SlotAcquisitionType] = string(bestType)
	}
}

// ---- prices ----

var (
	cuedPriceRe  = regexp.MustCompile(`\b(?:for|cost|costs|paid|worth)\s+(\d+(?:\.\d{1,2})?)(?:\s+([a-z]+))?`)
	wordPriceRe  = regexp.MustCompile(`\b([a-z]+(?:[ -][a-z]+)?)\s+(?:bucks|dollars)\b`)
	currencyRe   = regexp.MustCompile(`\$\s*(\d+(?:\.\d{1,2})?)`)
	priceMinRe   = regexp.MustCompile(`\b(?:more|over|above|greater)\s+than\s+\$?(\d+(?:\.\d{1,2})?)`)
	priceMaxRe   = regexp.MustCompile(`\b(?:less|cheaper)\s+than\s+\$?(\d+(?:\.\d{1,2})?)`)
	priceUnderRe = regexp.MustCompile(`\b(?:under|below)\s+\$?(\d+(?:\.\d{1,2})?)`)
	betweenRe    = regexp.MustCompile(`\bbetween\s+\$?(\d+(?:\.\d{1,2})?)\s+and\s+\$?(\d+(?:\.\d{1,2})?)`)

	timeUnits = map[string]bool{
		"day": true, "days": true, "week": true, "weeks": true,
		"month": true, "months": true, "year": true, "years": true,
		"hours": true, "minutes": true,
	}
)

func (e *Extractor) extractPrices(lower string, f model.FilterSet) {
	// Bare number with a price cue, the least specific form, runs first.
	for _, m := range cuedPriceRe.FindAllStringSubmatch(lower, -1) {
		if timeUnits[m[2]] {
			continue // "for 2 weeks" is not a price
		}
		f[model.SlotPrice] = canonicalAmount(m[1])
	}

	// Spelled-out amounts ("forty bucks"). The captured phrase may drag
	// in a leading cue word ("for forty"), so retry without it.
	for _, m := range wordPriceRe.FindAllStringSubmatch(lower, -1) {
		phrase := m[1]
		n, ok := wordsToNumber(phrase)
		if !ok {
			if _, rest, found := strings.Cut(phrase, " "); found {
				n, ok = wordsToNumber(rest)
			}
		}
		if ok {
			f[model.SlotPrice] = fmt.Sprintf("%.2f", n)
		}
	}

	// Exact currency amount beats any bare number.
	if m := lastSubmatch(currencyRe, lower); m != "" {
		f[model.SlotPrice] = canonicalAmount(m)
	}

	// Comparisons and ranges consume the amount: a bound is not a price.
	bounded := false
	if m := lastSubmatch(priceMinRe, lower); m != "" {
		f[model.SlotPriceMin] = canonicalAmount(m)
		bounded = true
	}
	if m := lastSubmatch(priceMaxRe, lower); m != "" {
		f[model.SlotPriceMax] = canonicalAmount(m)
		bounded = true
	}
	if m := lastSubmatch(priceUnderRe, lower); m != "" {
		f[model.SlotPriceMax] = canonicalAmount(m)
		bounded = true
	}
	if m := betweenRe.FindAllStringSubmatch(lower, -1); len(m) > 0 {
		last := m[len(m)-1]
		f[model.SlotPriceMin] = canonicalAmount(last[1])
		f[model.SlotPriceMax] = canonicalAmount(last[2])
		bounded = true
	}
	if bounded {
		delete(f, model.SlotPrice)
	}
}

func canonicalAmount(s string) string {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f", n)
}

var numberWords = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19, "twenty": 20, "thirty": 30, "forty": 40,
	"fifty": 50, "sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// wordsToNumber parses spelled-out amounts like "forty", "forty-five"
// or "a hundred".
func wordsToNumber(phrase string) (float64, bool) {
	words := strings.FieldsFunc(phrase, func(r rune) bool { return r == ' ' || r == '-' })
	total := 0.0
	matched := false
	for _, w := range words {
		switch {
		case w == "a" || w == "an":
			// "a hundred"
		case w == "hundred":
			if total == 0 {
				total = 100
			} else {
				total *= 100
			}
			matched = true
		default:
			n, ok := numberWords[w]
			if !ok {
				return 0, false
			}
			total += n
			matched = true
		}
	}
	return total, matched && total > 0
}

// ---- dates ----

var (
	relativeDateRe = regexp.MustCompile(`\b(last\s+(?:week|month|year)|yesterday|today|\d+\s+(?:day|week|month)s?\s+ago|a\s+(?:week|month)\s+ago)\b`)
	explicitDateRe = regexp.MustCompile(`\b(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}/\d{1,2}/\d{2,4})\b`)
	singleDayWords = map[string]bool{"yesterday": true, "today": true}
)

func (e *Extractor) extractDates(lower string, f model.FilterSet) {
	now := e.now()

	// Relative phrases first; an explicit date is more specific and
	// overrides below.
	if phrase := lastSubmatch(relativeDateRe, lower); phrase != "" {
		t, err := naturaldate.Parse(phrase, now, naturaldate.WithDirection(naturaldate.Past))
		if err == nil {
			if singleDayWords[phrase] {
				setSingleDay(f, t)
			} else {
				setDateRange(f, t, now)
			}
		}
	}

	if m := lastSubmatch(explicitDateRe, lower); m != "" {
		if t, err := dateparse.ParseAny(m); err == nil {
			setSingleDay(f, t)
		}
	}
}

func setSingleDay(f model.FilterSet, t time.Time) {
	day := t.Format(model.DateLayout)
	f[model.SlotDateFrom] = day
	f[model.SlotDateTo] = day
	f[model.SlotDate] = day
}

func setDateRange(f model.FilterSet, from, to time.Time) {
	f[model.SlotDateFrom] = from.Format(model.DateLayout)
	f[model.SlotDateTo] = to.Format(model.DateLayout)
	delete(f, model.SlotDate)
}

// ---- entity cues ----

var determiners = map[string]bool{
	"this": true, "that": true, "my": true, "a": true, "an": true,
}

// Function words and generic nouns the item heuristic must skip.
var itemStopwords = map[string]bool{
	"the": true, "for": true, "and": true, "was": true, "with": true,
	"from": true, "that": true, "this": true, "item": true, "items": true,
	"thing": true, "things": true, "stuff": true, "product": true,
	"products": true, "one": true, "old": true, "new": true, "big": true,
	"small": true, "nice": true, "really": true, "last": true,
	"few": true, "lot": true, "sale": true, "not": true, "but": true,
}

var storeLocationRe = regexp.MustCompile(`\b(?:at|from)\s+the\s+([a-z]+(?:\s+[a-z]+)?\s+(?:store|shop|market))\b`)

func (e *Extractor) extractEntities(text string, f model.FilterSet) {
	tokens := e.parser.Parse(text)

	for i, t := range tokens {
		// Proper-noun span after a spatial preposition is a location:
		// "at Walmart", "from Home Depot". Stored lowercased like every
		// other slot value so normalized renderings re-extract equal.
		if (t.Lower == "at" || t.Lower == "from") && i+1 < len(tokens) {
			if span, _ := properSpan(tokens, i+1); span != "" && span != "I" {
				f[model.SlotLocation] = strings.ToLower(span)
			}
		}

		// Noun after a determiner is an item mention: "this lamp",
		// "a blender". Locations and condition words are skipped so
		// "in the garage" never becomes an item.
		if determiners[t.Lower] && i+1 < len(tokens) {
			n := tokens[i+1]
			if n.Num || len(n.Lower) < 3 || itemStopwords[n.Lower] {
				continue
			}
			if _, isCond := e.vocab.conditionOf[n.Lower]; isCond {
				continue
			}
			if e.vocab.locationRe != nil && e.vocab.locationRe.MatchString(n.Lower) {
				continue
			}
			f[model.SlotItem] = n.Lower
		}
	}

	// "at the hardware store" is lowercase but still a location.
	if m := lastSubmatch(storeLocationRe, strings.ToLower(text)); m != "" {
		f[model.SlotLocation] = m
	}
}

// ---- keyed forms ----

// Keyed forms are the rendered normalized syntax (see FilterSet.Describe)
// and the most specific patterns, so they run last and override.
var (
	keyedCategoryRe  = regexp.MustCompile(`\bcategory\s+([a-z]\w*)`)
	keyedConditionRe = regexp.MustCompile(`\bcondition\s+([a-z_]\w*)`)
	keyedItemRe      = regexp.MustCompile(`\bitem\s+([a-z]\w*)`)
	keyedAcquiredRe  = regexp.MustCompile(`\bacquired\s+via\s+([a-z]\w*)`)
	keyedLocationRe  = regexp.MustCompile(`\blocation\s+([a-z][a-z ]*)$`)
	keyedRangeRe     = regexp.MustCompile(`\bfrom\s+(\d{4}-\d{2}-\d{2})\s+to\s+(\d{4}-\d{2}-\d{2})`)
	keyedOnRe        = regexp.MustCompile(`\bon\s+(\d{4}-\d{2}-\d{2})\b`)
)

func (e *Extractor) extractKeyed(lower string, f model.FilterSet) {
	if m := lastSubmatch(keyedCategoryRe, lower); m != "" {
		if c, ok := e.vocab.Category(m); ok {
			f[model.SlotCategory] = c
		} else {
			f[model.SlotCategory] = m
		}
	}
	if m := lastSubmatch(keyedConditionRe, lower); m != "" {
		f[model.SlotCondition] = m
	}
	if m := lastSubmatch(keyedItemRe, lower); m != "" {
		f[model.SlotItem] = m
	}
	if m := lastSubmatch(keyedAcquiredRe, lower); m != "" {
		if t := model.AcquisitionType(m); t.Valid() {
			f[model.SlotAcquisitionType] = m
		}
	}
	if m := lastSubmatch(keyedLocationRe, lower); m != "" {
		f[model.SlotLocation] = strings.TrimSpace(m)
	}
	if m := keyedRangeRe.FindAllStringSubmatch(lower, -1); len(m) > 0 {
		last := m[len(m)-1]
		f[model.SlotDateFrom] = last[1]
		f[model.SlotDateTo] = last[2]
		delete(f, model.SlotDate)
	}
	if m := lastSubmatch(keyedOnRe, lower); m != "" {
		f[model.SlotDateFrom] = m
		f[model.SlotDateTo] = m
		f[model.SlotDate] = m
	}
}

// ---- regexp helpers ----

// lastMatch returns the rightmost whole match of re in s.
func lastMatch(re *regexp.Regexp, s string) string {
	all := re.FindAllString(s, -1)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

// lastSubmatch returns the first capture group of the rightmost match.
func lastSubmatch(re *regexp.Regexp, s string) string {
	all := re.FindAllStringSubmatch(s, -1)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1][1]
}
