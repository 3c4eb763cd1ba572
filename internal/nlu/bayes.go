package nlu

import (
	"math"
	"regexp"
	"strings"

	"packrat/internal/model"
)

// Example is one labeled training utterance.
type Example struct {
	Text   string       `json:"text" yaml:"text"`
	Intent model.Intent `json:"intent" yaml:"intent"`
}

// classStats holds per-intent counts. Fields are exported for JSON
// persistence through the model manager.
type classStats struct {
	Docs        int            `json:"docs"`
	TokenCounts map[string]int `json:"token_counts"`
	TotalTokens int            `json:"total_tokens"`
}

// BayesModel is a multinomial naive Bayes text classifier over a
// bag-of-words representation. It is the statistical half of the
// intent classifier; the rule layer is independent of it.
type BayesModel struct {
	Classes   map[model.Intent]*classStats `json:"classes"`
	TotalDocs int                          `json:"total_docs"`
	VocabSize int                          `json:"vocab_size"`

	vocab map[string]bool
}

// NewBayesModel returns an empty, untrained model.
func NewBayesModel() *BayesModel {
	return &BayesModel{
		Classes: map[model.Intent]*classStats{},
		vocab:   map[string]bool{},
	}
}

// Trained reports whether the model has seen any examples.
func (b *BayesModel) Trained() bool {
	return b != nil && b.TotalDocs > 0
}

// Train adds examples to the model. Training is cumulative; callers
// that want a fresh model start from NewBayesModel.
func (b *BayesModel) Train(examples []Example) {
	if b.vocab == nil {
		b.rebuildVocab()
	}
	for _, ex := range examples {
		if !ex.Intent.Valid() || ex.Intent == model.IntentUnknown {
			continue
		}
		cs := b.Classes[ex.Intent]
		if cs == nil {
			cs = &classStats{TokenCounts: map[string]int{}}
			b.Classes[ex.Intent] = cs
		}
		cs.Docs++
		b.TotalDocs++
		for _, tok := range bagOfWords(ex.Text) {
			cs.TokenCounts[tok]++
			cs.TotalTokens++
			if !b.vocab[tok] {
				b.vocab[tok] = true
				b.VocabSize++
			}
		}
	}
}

// Predict returns a probability distribution over the trained intents.
// The distribution sums to 1; an untrained model returns nil.
func (b *BayesModel) Predict(text string) map[model.Intent]float64 {
	if !b.Trained() {
		return nil
	}
	tokens := bagOfWords(text)

	// Log-space scoring with Laplace smoothing, then normalized back
	// to probabilities with the usual max-shift for stability.
	scores := map[model.Intent]float64{}
	maxScore := math.Inf(-1)
	for intent, cs := range b.Classes {
		score := math.Log(float64(cs.Docs) / float64(b.TotalDocs))
		denom := float64(cs.TotalTokens + b.VocabSize + 1)
		for _, tok := range tokens {
			score += math.Log(float64(cs.TokenCounts[tok]+1) / denom)
		}
		scores[intent] = score
		if score > maxScore {
			maxScore = score
		}
	}

	var sum float64
	for intent, score := range scores {
		p := math.Exp(score - maxScore)
		scores[intent] = p
		sum += p
	}
	for intent := range scores {
		scores[intent] /= sum
	}
	return scores
}

// Top returns the highest-probability intent and its confidence.
func (b *BayesModel) Top(text string) (model.Intent, float64) {
	dist := b.Predict(text)
	if dist == nil {
		return model.IntentUnknown, 0
	}
	best := model.IntentUnknown
	conf := -1.0
	// Iterate the stable intent order so ties break deterministically.
	for _, intent := range model.Intents {
		if p, ok := dist[intent]; ok && p > conf {
			best = intent
			conf = p
		}
	}
	if conf < 0 {
		return model.IntentUnknown, 0
	}
	return best, conf
}

// rebuildVocab restores the unexported token set after the model is
// loaded from disk.
func (b *BayesModel) rebuildVocab() {
	b.vocab = map[string]bool{}
	for _, cs := range b.Classes {
		for tok := range cs.TokenCounts {
			b.vocab[tok] = true
		}
	}
	b.VocabSize = len(b.vocab)
}

var wordRe = regexp.MustCompile(`[a-z0-9$]+`)

// bagOfWords lowercases and tokenizes text for the model.
func bagOfWords(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}
