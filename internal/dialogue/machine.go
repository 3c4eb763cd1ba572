package dialogue

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"packrat/internal/model"
)

// Phase is the lifecycle state of an acquisition conversation.
type Phase string

const (
	PhaseAwaitingType Phase = "awaiting_type"
	PhaseCollecting   Phase = "collecting_fields"
	PhaseComplete     Phase = "complete"
	PhaseCancelled    Phase = "cancelled"
	PhaseExpired      Phase = "expired"
)

// Sentinel errors surfaced to callers of the state machine.
var (
	// ErrExpired means the conversation sat idle past the timeout; the
	// caller must restart the dialogue, never silently resume.
	ErrExpired = errors.New("conversation expired")
	// ErrFinished means the conversation already reached a terminal
	// phase and accepts no further answers.
	ErrFinished = errors.New("conversation already finished")
	// ErrInvalidToken means a state token could not be decoded.
	ErrInvalidToken = errors.New("invalid state token")
)

// Conversation is the full state of one acquisition dialogue. It is
// owned by the state machine for the lifetime of the dialogue and
// serialized into the opaque token callers round-trip between turns.
type Conversation struct {
	SessionID string                `json:"session_id"`
	Type      model.AcquisitionType `json:"type,omitempty"`
	Item      string                `json:"item,omitempty"`
	Fields    map[string]string     `json:"fields"`
	Remaining []string              `json:"remaining"`
	Phase     Phase                 `json:"phase"`

	// FieldRetries counts answers that captured something but not the
	// asked field; DeadAnswers counts answers with nothing extractable
	// at all. They reset on every successful capture.
	FieldRetries int `json:"field_retries"`
	DeadAnswers  int `json:"dead_answers"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StepResult is the machine's output for one turn: either the next
// question to ask, or the completed record, or a cancellation notice.
type StepResult struct {
	Question  string
	Field     string
	Record    *model.AcquisitionRecord
	Cancelled bool
}

// Extractor re-runs slot extraction on answer text so "forty bucks"
// normalizes to a price. Satisfied by *nlu.Extractor.
type Extractor interface {
	Extract(text string) model.FilterSet
}

// DefaultIdleTimeout bounds how long a conversation may sit untouched
// before it expires.
const DefaultIdleTimeout = 15 * time.Minute

// DefaultRetryLimit bounds both the per-field retries and the
// consecutive dead answers before cancellation.
const DefaultRetryLimit = 3

// Machine drives acquisition dialogues. It holds no per-conversation
// state itself; the Conversation value is passed in and out.
type Machine struct {
	extractor Extractor
	idle      time.Duration
	retries   int
	now       func() time.Time
}

// NewMachine builds a state machine around the given extractor.
func NewMachine(ex Extractor) *Machine {
	return &Machine{
		extractor: ex,
		idle:      DefaultIdleTimeout,
		retries:   DefaultRetryLimit,
		now:       time.Now,
	}
}

// WithIdleTimeout overrides the idle timeout (mainly for tests).
func (m *Machine) WithIdleTimeout(d time.Duration) *Machine {
	m.idle = d
	return m
}

// Start opens a dialogue from the user's opening statement. Whatever
// slots the statement already carried are pre-filled, so a fully
// specified statement completes with zero clarifying questions.
func (m *Machine) Start(sessionID, statement string) (*Conversation, *StepResult) {
	f := m.extractor.Extract(statement)
	now := m.now()

	c := &Conversation{
		SessionID: sessionID,
		Item:      f[model.SlotItem],
		Fields:    map[string]string{},
		Phase:     PhaseAwaitingType,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if t := model.AcquisitionType(f[model.SlotAcquisitionType]); t.Valid() {
		m.setType(c, t)
		m.absorb(c, f)
		return c, m.advance(c)
	}

	log.Debug().Str("session", sessionID).Msg("acquisition type unclear, asking")
	return c, &StepResult{Question: TypeQuestion}
}

// Step feeds one user answer into the conversation.
func (m *Machine) Step(c *Conversation, answer string) (*StepResult, error) {
	switch c.Phase {
	case PhaseCancelled, PhaseComplete:
		return nil, ErrFinished
	case PhaseExpired:
		return nil, ErrExpired
	}

	now := m.now()
	if now.Sub(c.UpdatedAt) > m.idle {
		c.Phase = PhaseExpired
		log.Info().Str("session", c.SessionID).Msg("conversation expired")
		return nil, ErrExpired
	}
	c.UpdatedAt = now

	if isCancel(answer) {
		c.Phase = PhaseCancelled
		log.Info().Str("session", c.SessionID).Msg("conversation cancelled by user")
		return &StepResult{Cancelled: true}, nil
	}

	if c.Phase == PhaseAwaitingType {
		return m.stepAwaitingType(c, answer), nil
	}
	return m.stepCollecting(c, answer), nil
}

func (m *Machine) stepAwaitingType(c *Conversation, answer string) *StepResult {
	f := m.extractor.Extract(answer)
	t := model.AcquisitionType(f[model.SlotAcquisitionType])
	if !t.Valid() {
		t = typeFromWords(answer)
	}
	if !t.Valid() {
		c.DeadAnswers++
		if c.DeadAnswers >= m.retries {
			c.Phase = PhaseCancelled
			return &StepResult{Cancelled: true}
		}
		return &StepResult{Question: TypeQuestion}
	}

	c.DeadAnswers = 0
	m.setType(c, t)
	m.absorb(c, f)
	return m.advance(c)
}

func (m *Machine) stepCollecting(c *Conversation, answer string) *StepResult {
	field := c.Remaining[0]
	f := m.extractor.Extract(answer)

	// Opportunistic capture: an answer often carries more than the
	// asked field ("bought it for $40 at Target" answering "where").
	// The latest explicit statement always wins.
	capturedAsked := false
	capturedAny := false
	for _, tf := range Template(c.Type) {
		if v := fieldFromFilters(tf, f); v != "" {
			c.Fields[tf] = v
			capturedAny = true
			if tf == field {
				capturedAsked = true
			}
		}
	}

	if !capturedAsked && freeformFields[field] && strings.TrimSpace(answer) != "" {
		c.Fields[field] = strings.TrimSpace(answer)
		capturedAsked = true
	}

	switch {
	case capturedAsked:
		c.FieldRetries = 0
		c.DeadAnswers = 0
	case capturedAny:
		// Asked field still missing but the answer wasn't dead.
		c.FieldRetries++
		c.DeadAnswers = 0
		if c.FieldRetries >= m.retries {
			c.Fields[field] = FieldUnknown
			c.FieldRetries = 0
			log.Debug().Str("field", field).Msg("field exhausted retries, recorded as unknown")
		} else {
			return &StepResult{Question: questionFor(c.Type, field), Field: field}
		}
	default:
		c.DeadAnswers++
		if c.DeadAnswers >= m.retries {
			c.Phase = PhaseCancelled
			log.Info().Str("session", c.SessionID).Msg("conversation cancelled after repeated unparseable answers")
			return &StepResult{Cancelled: true}
		}
		return &StepResult{Question: questionFor(c.Type, field), Field: field}
	}

	return m.advance(c)
}

// setType loads the type's required-field template.
func (m *Machine) setType(c *Conversation, t model.AcquisitionType) {
	c.Type = t
	c.Remaining = Template(t)
	c.Phase = PhaseCollecting
}

// absorb fills template fields from an extracted filter set.
func (m *Machine) absorb(c *Conversation, f model.FilterSet) {
	for _, tf := range Template(c.Type) {
		if v := fieldFromFilters(tf, f); v != "" {
			c.Fields[tf] = v
		}
	}
	if c.Item == "" && f[model.SlotItem] != "" {
		c.Item = f[model.SlotItem]
	}
}

// advance pops already-collected fields off the queue and either asks
// the next question or completes the dialogue.
func (m *Machine) advance(c *Conversation) *StepResult {
	for len(c.Remaining) > 0 && c.Fields[c.Remaining[0]] != "" {
		c.Remaining = c.Remaining[1:]
	}

	if len(c.Remaining) > 0 {
		field := c.Remaining[0]
		return &StepResult{Question: questionFor(c.Type, field), Field: field}
	}

	c.Phase = PhaseComplete
	log.Info().
		Str("session", c.SessionID).
		Str("type", string(c.Type)).
		Msg("acquisition dialogue complete")
	return &StepResult{Record: c.Record()}
}

// Record builds the structured record a completed conversation emits.
func (c *Conversation) Record() *model.AcquisitionRecord {
	fields := make(map[string]string, len(c.Fields))
	for k, v := range c.Fields {
		fields[k] = v
	}
	return &model.AcquisitionRecord{
		Type:      c.Type,
		Item:      c.Item,
		Fields:    fields,
		CreatedAt: c.CreatedAt,
	}
}

var cancelRe = regexp.MustCompile(`^\s*(cancel|stop|quit|never\s*mind|forget\s+it)\s*\.?\s*$`)

func isCancel(answer string) bool {
	return cancelRe.MatchString(strings.ToLower(answer))
}

// typeFromWords recognizes a bare type answer like "I bought it" or
// "it was a gift" when extraction found nothing.
func typeFromWords(answer string) model.AcquisitionType {
	lower := strings.ToLower(answer)
	for word, t := range typeWords {
		if strings.Contains(lower, word) {
			return t
		}
	}
	return ""
}

var typeWords = map[string]model.AcquisitionType{
	"buy": model.AcquisitionPurchased, "bought": model.AcquisitionPurchased, "purchase": model.AcquisitionPurchased,
	"gift": model.AcquisitionGift, "given": model.AcquisitionGift, "gave": model.AcquisitionGift, "present": model.AcquisitionGift,
	"trade": model.AcquisitionTrade, "traded": model.AcquisitionTrade, "swap": model.AcquisitionTrade,
	"found": model.AcquisitionFound, "find": model.AcquisitionFound,
	"borrow": model.AcquisitionBorrowed, "borrowed": model.AcquisitionBorrowed,
	"inherit": model.AcquisitionInherited, "inherited": model.AcquisitionInherited,
	"made": model.AcquisitionMade, "built": model.AcquisitionMade,
	"won": model.AcquisitionWon,
	"lost": model.AcquisitionLost,
	"disposed": model.AcquisitionDisposed, "donated": model.AcquisitionDisposed, "threw": model.AcquisitionDisposed,
}

// EncodeToken serializes a conversation into an opaque token the
// caller round-trips between turns. The caller holds no semantics,
// only the token.
func EncodeToken(c *Conversation) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode state token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeToken restores a conversation from a token.
func DecodeToken(token string) (*Conversation, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var c Conversation
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.SessionID == "" || (c.Phase != PhaseAwaitingType && !c.Type.Valid()) {
		return nil, ErrInvalidToken
	}
	if c.Fields == nil {
		c.Fields = map[string]string{}
	}
	// The question queue must always be the template minus what has
	// been collected. Tokens are caller-supplied, so rebuild it rather
	// than trust it; a collecting conversation with nothing left to ask
	// is not a state the machine can ever emit.
	if c.Phase == PhaseCollecting {
		c.Remaining = remainingFields(&c)
		if len(c.Remaining) == 0 {
			return nil, ErrInvalidToken
		}
	}
	return &c, nil
}

// remainingFields recomputes the uncollected template fields in order.
func remainingFields(c *Conversation) []string {
	var out []string
	for _, tf := range Template(c.Type) {
		if c.Fields[tf] == "" {
			out = append(out, tf)
		}
	}
	return out
}
