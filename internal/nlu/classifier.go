package nlu

import (
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"packrat/internal/model"
)

const (
	// Below this statistical confidence an exact-trigger rule wins a
	// disagreement with the model.
	defaultOverrideThreshold = 0.80
	// Below this floor, with no rule firing, the intent is unknown.
	defaultConfidenceFloor = 0.30
	// Confidence assigned when a rule decides the intent.
	ruleConfidence = 0.95
)

// Rule is one deterministic keyword pattern. Exact rules are trigger
// phrases specific enough to override a low-confidence model.
type Rule struct {
	Pattern *regexp.Regexp
	Intent  model.Intent
	Exact   bool
}

// defaultRules returns the ordered rule table. Order matters: the
// first firing rule wins within the rule layer.
func defaultRules() []Rule {
	return []Rule{
		// Acquisition statements open a logging dialogue.
		{regexp.MustCompile(`\bi\s+(just\s+)?(bought|purchased|got|found|traded|borrowed|inherited|made|built|won|lost)\b`), model.IntentLogAcquisition, true},
		{regexp.MustCompile(`\b(someone|she|he|they)\s+gave\s+me\b`), model.IntentLogAcquisition, true},
		{regexp.MustCompile(`\b(was\s+)?(gifted|given)\s+(to\s+me|this|a)\b`), model.IntentLogAcquisition, true},
		{regexp.MustCompile(`\b(threw\s+away|donated|got\s+rid\s+of)\b`), model.IntentLogAcquisition, true},

		{regexp.MustCompile(`^how\s+many\b`), model.IntentCount, true},
		{regexp.MustCompile(`\bhow\s+many\b`), model.IntentCount, false},

		{regexp.MustCompile(`\bhow\s+much\s+(have\s+i\s+spent|did\s+i\s+spend|is\s+.*\s+worth|are\s+.*\s+worth)\b`), model.IntentValue, true},
		{regexp.MustCompile(`\b(total\s+value|worth|how\s+much)\b`), model.IntentValue, false},

		{regexp.MustCompile(`\bcost\s+(more|less)\s+than\b`), model.IntentPriceRange, true},
		{regexp.MustCompile(`\b(between\s+\$?\d+\s+and|under\s+\$?\d+|over\s+\$?\d+)\b`), model.IntentPriceRange, false},

		{regexp.MustCompile(`^what\s+needs\s+(to\s+be\s+)?(fix|repair)`), model.IntentRepair, true},
		{regexp.MustCompile(`\b(broke(n)?|fix(ing)?|repair(s|ed|ing)?)\b`), model.IntentRepair, false},

		{regexp.MustCompile(`\bwhat\s+did\s+i\s+buy\b`), model.IntentPurchaseHistory, true},
		{regexp.MustCompile(`\b(purchase\s+history|purchases|recently\s+bought)\b`), model.IntentPurchaseHistory, false},

		{regexp.MustCompile(`^where\b`), model.IntentSearch, true},
		{regexp.MustCompile(`\b(where|find|show\s+me|list|search)\b`), model.IntentSearch, false},
	}
}

// Classifier combines the statistical model with the deterministic
// rule layer. Rules are a safety net for inputs the model was never
// shown; the precedence policy is explicit rather than fallthrough:
//
//  1. untrained model: rules decide, otherwise unknown
//  2. exact rule disagreeing with a sub-threshold model top-1: rule wins
//  3. model confidence under the floor: any rule wins, otherwise unknown
//  4. otherwise: statistical top-1 wins
type Classifier struct {
	mu    sync.RWMutex
	model *BayesModel
	rules []Rule

	overrideThreshold float64
	floor             float64
}

// NewClassifier builds a classifier around the given model. A nil
// model is treated as untrained; the classifier runs on rules alone
// until Train is called.
func NewClassifier(m *BayesModel) *Classifier {
	if m == nil {
		m = NewBayesModel()
	}
	return &Classifier{
		model:             m,
		rules:             defaultRules(),
		overrideThreshold: defaultOverrideThreshold,
		floor:             defaultConfidenceFloor,
	}
}

// Classify returns the intent of text and a confidence in [0,1].
// Classifying the same text twice without training in between yields
// the same result.
func (c *Classifier) Classify(text string) (model.Intent, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ruleIntent, exact := c.matchRules(text)

	if !c.model.Trained() {
		if ruleIntent != model.IntentUnknown {
			return ruleIntent, ruleConfidence
		}
		return model.IntentUnknown, 0
	}

	top, conf := c.model.Top(text)

	if ruleIntent != model.IntentUnknown && exact && top != ruleIntent && conf < c.overrideThreshold {
		log.Debug().
			Str("model_intent", string(top)).
			Float64("confidence", conf).
			Str("rule_intent", string(ruleIntent)).
			Msg("rule overrides statistical intent")
		return ruleIntent, ruleConfidence
	}

	if conf < c.floor {
		if ruleIntent != model.IntentUnknown {
			return ruleIntent, ruleConfidence
		}
		return model.IntentUnknown, conf
	}

	return top, conf
}

// Train feeds examples to the statistical model.
func (c *Classifier) Train(examples []Example) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model.Train(examples)
}

// Model returns the underlying statistical model, for persistence.
func (c *Classifier) Model() *BayesModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// matchRules evaluates the rule table in order and returns the first
// firing rule's intent, preferring exact triggers.
func (c *Classifier) matchRules(text string) (model.Intent, bool) {
	lower := normalizeForRules(text)

	firstLoose := model.IntentUnknown
	for _, r := range c.rules {
		if !r.Pattern.MatchString(lower) {
			continue
		}
		if r.Exact {
			return r.Intent, true
		}
		if firstLoose == model.IntentUnknown {
			firstLoose = r.Intent
		}
	}
	return firstLoose, false
}

var spaceRe = regexp.MustCompile(`\s+`)

func normalizeForRules(text string) string {
	return strings.TrimSpace(strings.ToLower(spaceRe.ReplaceAllString(text, " ")))
}
