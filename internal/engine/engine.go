// Package engine is the conversational core: it classifies an
// utterance, extracts filters, resolves context, and routes to either
// a query handler or the acquisition dialogue.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"packrat/internal/dialogue"
	"packrat/internal/handlers"
	"packrat/internal/metrics"
	"packrat/internal/model"
	"packrat/internal/nlu"
	"packrat/internal/store"
)

// ErrEmptyQuery is returned for blank input.
var ErrEmptyQuery = errors.New("empty query")

// UnknownIntentMessage is the clarification prompt for utterances the
// classifier could not place. It is an answer, not an error.
const UnknownIntentMessage = "I'm not sure what you're asking. You can search your items, " +
	"count them, ask what they're worth, check repairs, or tell me about something you acquired."

// Response is the engine's answer to one turn: a query result, or the
// next dialogue question with its state token, or a completion notice.
type Response struct {
	SessionID  string             `json:"session_id"`
	Intent     model.Intent       `json:"intent,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	Message    string             `json:"message"`
	Result     *model.QueryResult `json:"result,omitempty"`

	// Dialogue fields. Token round-trips opaque conversation state; the
	// caller passes it back with the next answer.
	Question  string `json:"question,omitempty"`
	Token     string `json:"token,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	Done      bool   `json:"done,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
}

// Config assembles an engine from its collaborators.
type Config struct {
	Store        store.Store
	Classifier   *nlu.Classifier
	Extractor    *nlu.Extractor
	Metrics      *metrics.Metrics
	IdleTimeout  time.Duration
	ModelVersion string
}

// Engine owns the per-session state and the turn pipeline.
type Engine struct {
	store        store.Store
	classifier   *nlu.Classifier
	extractor    *nlu.Extractor
	machine      *dialogue.Machine
	sessions     *dialogue.Manager
	handlers     handlers.Registry
	metrics      *metrics.Metrics
	modelVersion string
}

// New builds an engine. Store and Classifier are required; a nil
// Extractor gets the default vocabulary, a nil Metrics disables
// counting.
func New(cfg Config) *Engine {
	ex := cfg.Extractor
	if ex == nil {
		ex = nlu.NewExtractor(nil, nil)
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(nil)
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = dialogue.DefaultIdleTimeout
	}
	return &Engine{
		store:        cfg.Store,
		classifier:   cfg.Classifier,
		extractor:    ex,
		machine:      dialogue.NewMachine(ex).WithIdleTimeout(idle),
		sessions:     dialogue.NewManager(idle),
		handlers:     handlers.NewRegistry(cfg.Store),
		metrics:      m,
		modelVersion: cfg.ModelVersion,
	}
}

// ModelVersion reports the classifier model version the engine was
// built with, or "" when running untrained.
func (e *Engine) ModelVersion() string {
	return e.modelVersion
}

// ProcessQuery runs one utterance through the full pipeline. When the
// session has a live acquisition dialogue the utterance is treated as
// an answer to it; otherwise it is classified and dispatched.
func (e *Engine) ProcessQuery(ctx context.Context, sessionID, text string) (*Response, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s := e.sessions.Acquire(sessionID)
	defer e.sessions.Release(s)

	if s.Conv != nil {
		// A conversation stuck in the complete phase means the record
		// write failed last turn; retry it before anything else.
		if s.Conv.Phase == dialogue.PhaseComplete {
			return e.persistRecord(ctx, s, s.Conv, s.Conv.Record())
		}
		res, err := e.machine.Step(s.Conv, text)
		if errors.Is(err, dialogue.ErrExpired) {
			e.metrics.Dialogue("expired")
			s.Conv = nil
			e.dropConversationBlob(ctx, sessionID)
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		return e.afterStep(ctx, s, s.Conv, res)
	}

	// Classification and extraction are independent passes over the
	// same text, so they run concurrently.
	var (
		intent  model.Intent
		conf    float64
		filters model.FilterSet
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		intent, conf = e.classifier.Classify(text)
		return nil
	})
	g.Go(func() error {
		filters = e.extractor.Extract(text)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.metrics.Query(string(intent))
	log.Debug().
		Str("session", sessionID).
		Str("intent", string(intent)).
		Float64("confidence", conf).
		Int("slots", len(filters)).
		Msg("classified utterance")

	if intent == model.IntentUnknown {
		e.metrics.LowConfidence()
		return &Response{
			SessionID:  sessionID,
			Intent:     intent,
			Confidence: conf,
			Message:    UnknownIntentMessage,
		}, nil
	}

	if intent == model.IntentLogAcquisition {
		conv, step := e.machine.Start(sessionID, text)
		s.Conv = conv
		resp, err := e.afterStep(ctx, s, conv, step)
		if resp != nil {
			resp.Intent = intent
			resp.Confidence = conf
		}
		return resp, err
	}

	resolved := s.Frame.Resolve(intent, filters, e.sessions.IdleTimeout())

	h, ok := e.handlers[intent]
	if !ok {
		return nil, fmt.Errorf("no handler for intent %q", intent)
	}
	result, err := h.Handle(ctx, resolved)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			e.metrics.StorageError()
		}
		return nil, err
	}

	s.Frame.Update(dialogue.Turn{
		Text:    text,
		Intent:  intent,
		Filters: resolved,
		At:      time.Now(),
	})
	e.persistFrame(ctx, s)

	return &Response{
		SessionID:  sessionID,
		Intent:     intent,
		Confidence: conf,
		Message:    result.Message,
		Result:     result,
	}, nil
}

// StartAcquisition opens an acquisition dialogue from an opening
// statement, bypassing classification. Used by callers that already
// know the turn is a logging statement.
func (e *Engine) StartAcquisition(ctx context.Context, sessionID, statement string) (*Response, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, ErrEmptyQuery
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s := e.sessions.Acquire(sessionID)
	defer e.sessions.Release(s)

	conv, step := e.machine.Start(sessionID, statement)
	s.Conv = conv
	return e.afterStep(ctx, s, conv, step)
}

// ContinueAcquisition feeds an answer into a dialogue identified by
// its state token. Stateless callers use this instead of ProcessQuery;
// a conversation whose record failed to persist can be retried by
// resubmitting the same token.
func (e *Engine) ContinueAcquisition(ctx context.Context, token, answer string) (*Response, error) {
	conv, err := dialogue.DecodeToken(token)
	if err != nil {
		return nil, err
	}

	s := e.sessions.Acquire(conv.SessionID)
	defer e.sessions.Release(s)
	s.Conv = conv

	// A complete conversation only reaches here when persistence
	// failed last time. Re-attempt without re-asking anything.
	if conv.Phase == dialogue.PhaseComplete {
		return e.persistRecord(ctx, s, conv, conv.Record())
	}

	res, err := e.machine.Step(conv, answer)
	if errors.Is(err, dialogue.ErrExpired) {
		e.metrics.Dialogue("expired")
		s.Conv = nil
		e.dropConversationBlob(ctx, conv.SessionID)
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return e.afterStep(ctx, s, conv, res)
}

// afterStep turns a machine step result into a response: the next
// question, a cancellation, or persistence of the completed record.
func (e *Engine) afterStep(ctx context.Context, s *dialogue.Session, conv *dialogue.Conversation, res *dialogue.StepResult) (*Response, error) {
	if res.Cancelled {
		e.metrics.Dialogue("cancelled")
		s.Conv = nil
		e.dropConversationBlob(ctx, conv.SessionID)
		return &Response{
			SessionID: conv.SessionID,
			Message:   "Okay, I won't log that.",
			Cancelled: true,
		}, nil
	}

	if res.Record != nil {
		return e.persistRecord(ctx, s, conv, res.Record)
	}

	token, err := dialogue.EncodeToken(conv)
	if err != nil {
		return nil, err
	}
	e.persistConversation(ctx, conv)

	return &Response{
		SessionID: conv.SessionID,
		Message:   res.Question,
		Question:  res.Question,
		Token:     token,
	}, nil
}

// persistRecord writes the completed record. On storage failure the
// conversation state survives in the returned token so the user is
// never asked the same questions again.
func (e *Engine) persistRecord(ctx context.Context, s *dialogue.Session, conv *dialogue.Conversation, rec *model.AcquisitionRecord) (*Response, error) {
	id, err := e.store.InsertAcquisition(ctx, rec)
	if err != nil {
		e.metrics.StorageError()
		token, tokErr := dialogue.EncodeToken(conv)
		if tokErr != nil {
			return nil, tokErr
		}
		e.persistConversation(ctx, conv)
		log.Warn().Err(err).Str("session", conv.SessionID).Msg("acquisition persist failed, state preserved")
		return &Response{
			SessionID: conv.SessionID,
			Token:     token,
		}, fmt.Errorf("persist acquisition: %w", err)
	}

	e.metrics.Dialogue("completed")
	s.Conv = nil
	s.Frame.Update(dialogue.Turn{
		Text:    "logged " + string(rec.Type) + " " + rec.Item,
		Intent:  model.IntentLogAcquisition,
		Filters: model.FilterSet{},
		ItemID:  id,
		At:      time.Now(),
	})
	e.dropConversationBlob(ctx, conv.SessionID)
	e.persistFrame(ctx, s)

	item := rec.Item
	if item == "" {
		item = "item"
	}
	return &Response{
		SessionID: conv.SessionID,
		Message:   fmt.Sprintf("Got it, logged the %s as %s.", item, rec.Type),
		ItemID:    id,
		Done:      true,
	}, nil
}

// persistConversation and persistFrame write session blobs best
// effort: the in-memory state is authoritative for a live process, the
// blobs only let a restarted process pick dialogues back up.
func (e *Engine) persistConversation(ctx context.Context, conv *dialogue.Conversation) {
	b, err := json.Marshal(conv)
	if err != nil {
		return
	}
	if err := e.store.SaveSession(ctx, conv.SessionID, store.SessionKindConversation, b); err != nil {
		log.Debug().Err(err).Msg("conversation blob save failed")
	}
}

func (e *Engine) persistFrame(ctx context.Context, s *dialogue.Session) {
	b, err := json.Marshal(s.Frame)
	if err != nil {
		return
	}
	if err := e.store.SaveSession(ctx, s.ID, store.SessionKindContext, b); err != nil {
		log.Debug().Err(err).Msg("context blob save failed")
	}
}

func (e *Engine) dropConversationBlob(ctx context.Context, sessionID string) {
	if err := e.store.DeleteSession(ctx, sessionID, store.SessionKindConversation); err != nil {
		log.Debug().Err(err).Msg("conversation blob delete failed")
	}
}

// StartSweeper garbage-collects idle sessions until ctx is cancelled.
func (e *Engine) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				e.sessions.Sweep()
			}
		}
	}()
}

// Sessions reports how many sessions are live.
func (e *Engine) Sessions() int {
	return e.sessions.Len()
}
