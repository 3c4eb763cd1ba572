package dialogue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"packrat/internal/model"
)

// stubExtractor returns canned filter sets per input text; unmapped
// text extracts nothing.
type stubExtractor struct {
	m map[string]model.FilterSet
}

func (s stubExtractor) Extract(text string) model.FilterSet {
	if f, ok := s.m[text]; ok {
		return f.Clone()
	}
	return model.FilterSet{}
}

func TestStartFullySpecifiedCompletes(t *testing.T) {
	m := NewMachine(stubExtractor{m: map[string]model.FilterSet{
		"I bought a blender for $45 at Walmart yesterday": {
			model.SlotAcquisitionType: "purchased",
			model.SlotItem:            "blender",
			model.SlotPrice:           "45.00",
			model.SlotLocation:        "walmart",
			model.SlotDate:            "2026-08-22",
		},
	}})

	conv, res := m.Start("u1", "I bought a blender for $45 at Walmart yesterday")
	require.NotNil(t, res.Record, "fully specified statement must ask nothing")
	assert.Equal(t, PhaseComplete, conv.Phase)

	rec := res.Record
	assert.Equal(t, model.AcquisitionPurchased, rec.Type)
	assert.Equal(t, "blender", rec.Item)
	assert.Equal(t, "45.00", rec.Fields[FieldPrice])
	assert.Equal(t, "walmart", rec.Fields[FieldLocation])
	assert.Equal(t, "2026-08-22", rec.Fields[FieldDate])
}

func TestStartWithoutTypeAsks(t *testing.T) {
	m := NewMachine(stubExtractor{})

	conv, res := m.Start("u1", "I have a new thing")
	assert.Equal(t, PhaseAwaitingType, conv.Phase)
	assert.Equal(t, TypeQuestion, res.Question)

	// A plain-words answer resolves the type.
	res, err := m.Step(conv, "I bought it")
	require.NoError(t, err)
	assert.Equal(t, PhaseCollecting, conv.Phase)
	assert.Equal(t, model.AcquisitionPurchased, conv.Type)
	assert.Equal(t, "How much did it cost?", res.Question)
}

func TestGiftDialogueAsksInTemplateOrder(t *testing.T) {
	m := NewMachine(stubExtractor{m: map[string]model.FilterSet{
		"someone gave me this lamp": {
			model.SlotAcquisitionType: "gift",
			model.SlotItem:            "lamp",
		},
		"yesterday": {model.SlotDate: "2026-08-22"},
	}})

	conv, res := m.Start("u1", "someone gave me this lamp")
	assert.Equal(t, "Who gave it to you?", res.Question)

	// from_whom is freeform: the raw answer is accepted.
	res, err := m.Step(conv, "My grandmother")
	require.NoError(t, err)
	assert.Equal(t, "When did you receive it?", res.Question)

	res, err = m.Step(conv, "yesterday")
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.Equal(t, "My grandmother", res.Record.Fields[FieldFromWhom])
	assert.Equal(t, "2026-08-22", res.Record.Fields[FieldDate])
}

func TestOpportunisticCapture(t *testing.T) {
	m := NewMachine(stubExtractor{m: map[string]model.FilterSet{
		"i bought a drill": {
			model.SlotAcquisitionType: "purchased",
			model.SlotItem:            "drill",
		},
		"it was $80 at the hardware store yesterday": {
			model.SlotPrice:    "80.00",
			model.SlotLocation: "hardware store",
			model.SlotDate:     "2026-08-22",
		},
	}})

	conv, res := m.Start("u1", "i bought a drill")
	assert.Equal(t, "How much did it cost?", res.Question)

	// One answer fills the asked field and two others.
	res, err := m.Step(conv, "it was $80 at the hardware store yesterday")
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.Equal(t, "80.00", res.Record.Fields[FieldPrice])
	assert.Equal(t, "hardware store", res.Record.Fields[FieldLocation])
	assert.Equal(t, "2026-08-22", res.Record.Fields[FieldDate])
}

func TestWrongFieldAnswersExhaustIntoUnknown(t *testing.T) {
	m := NewMachine(stubExtractor{m: map[string]model.FilterSet{
		"start": {model.SlotAcquisitionType: "purchased"},
		"it was at the garage sale": {model.SlotLocation: "garage sale"},
	}})

	conv, res := m.Start("u1", "start")
	assert.Equal(t, FieldPrice, res.Field)

	// Each answer captures a field, just never the asked one.
	for i := 0; i < DefaultRetryLimit-1; i++ {
		var err error
		res, err = m.Step(conv, "it was at the garage sale")
		require.NoError(t, err)
		assert.Equal(t, FieldPrice, res.Field, "attempt %d re-asks", i+1)
	}

	// The retry budget runs out: price goes down as unknown and the
	// queue advances past the already-captured location.
	res, err := m.Step(conv, "it was at the garage sale")
	require.NoError(t, err)
	assert.Equal(t, FieldDate, res.Field)
	assert.Equal(t, FieldUnknown, conv.Fields[FieldPrice])
	assert.Equal(t, "garage sale", conv.Fields[FieldLocation])
}

func TestDeadAnswersCancel(t *testing.T) {
	m := NewMachine(stubExtractor{m: map[string]model.FilterSet{
		"start": {model.SlotAcquisitionType: "purchased"},
	}})

	conv, _ := m.Start("u1", "start")

	var res *StepResult
	var err error
	for i := 0; i < DefaultRetryLimit; i++ {
		res, err = m.Step(conv, "mumble mumble")
		require.NoError(t, err)
	}
	assert.True(t, res.Cancelled)
	assert.Equal(t, PhaseCancelled, conv.Phase)

	_, err = m.Step(conv, "hello?")
	assert.ErrorIs(t, err, ErrFinished)
}

func TestCancelWords(t *testing.T) {
	for _, word := range []string{"cancel", "stop", "never mind", "nevermind", "forget it", " Quit. "} {
		m := NewMachine(stubExtractor{m: map[string]model.FilterSet{
			"start": {model.SlotAcquisitionType: "gift"},
		}})
		conv, _ := m.Start("u1", "start")

		res, err := m.Step(conv, word)
		require.NoError(t, err, "word %q", word)
		assert.True(t, res.Cancelled, "word %q", word)
	}
}

func TestExpiredConversation(t *testing.T) {
	m := NewMachine(stubExtractor{m: map[string]model.FilterSet{
		"start": {model.SlotAcquisitionType: "gift"},
	}})
	conv, _ := m.Start("u1", "start")
	conv.UpdatedAt = time.Now().Add(-DefaultIdleTimeout - time.Minute)

	_, err := m.Step(conv, "my aunt")
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, PhaseExpired, conv.Phase)

	// An expired conversation stays expired.
	_, err = m.Step(conv, "my aunt")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewMachine(stubExtractor{m: map[string]model.FilterSet{
		"start": {model.SlotAcquisitionType: "borrowed", model.SlotItem: "ladder"},
	}})
	conv, _ := m.Start("u1", "start")

	token, err := EncodeToken(conv)
	require.NoError(t, err)

	restored, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, conv.SessionID, restored.SessionID)
	assert.Equal(t, conv.Type, restored.Type)
	assert.Equal(t, conv.Item, restored.Item)
	assert.Equal(t, conv.Remaining, restored.Remaining)
	assert.Equal(t, conv.Phase, restored.Phase)
}

func TestDecodeTokenRebuildsQuestionQueue(t *testing.T) {
	// A tampered or drifted token may carry a queue inconsistent with
	// the template. Decoding must restore the invariant, never trust it.
	drifted := &Conversation{
		SessionID: "u1",
		Type:      model.AcquisitionGift,
		Fields:    map[string]string{},
		Remaining: []string{},
		Phase:     PhaseCollecting,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	token, err := EncodeToken(drifted)
	require.NoError(t, err)

	conv, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, []string{FieldFromWhom, FieldDate}, conv.Remaining)

	// Stepping the repaired conversation asks the first open field.
	m := NewMachine(stubExtractor{})
	res, err := m.Step(conv, "my aunt")
	require.NoError(t, err)
	assert.Equal(t, FieldDate, res.Field)

	// Collecting phase with every field already collected is a state
	// the machine never emits; such a token is invalid.
	done := &Conversation{
		SessionID: "u1",
		Type:      model.AcquisitionLost,
		Fields:    map[string]string{FieldDate: "2026-08-22"},
		Remaining: []string{},
		Phase:     PhaseCollecting,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	token, err = EncodeToken(done)
	require.NoError(t, err)
	_, err = DecodeToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	_, err := DecodeToken("!!! not base64 !!!")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Valid encoding, invalid contents.
	_, err = DecodeToken("e30") // "{}"
	assert.ErrorIs(t, err, ErrInvalidToken)
}
