package conversation

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/kalambet/docqa/internal/backend"
	"github.com/kalambet/docqa/internal/metrics"
)

// ErrorPlaceholder is the assistant text appended when a question fails.
const ErrorPlaceholder = "Error: could not get a response."

// State is the engine's position in the question cycle.
type State int

const (
	Idle State = iota
	AwaitingAnswer
)

func (s State) String() string {
	if s == AwaitingAnswer {
		return "awaiting_answer"
	}
	return "idle"
}

// Querier sends one question to the backend.
type Querier interface {
	Query(ctx context.Context, question string) (backend.QueryResponse, error)
}

// Pending is a question whose user turn has been appended and whose answer
// has not been applied yet.
type Pending struct {
	Question string
	done     bool
}

// Engine owns the append-only transcript and drives question/answer cycles.
//
// Overlapping questions are not serialized: each answer is appended when it
// arrives, so with concurrent callers the transcript follows arrival order.
type Engine struct {
	querier  Querier
	observer CitationObserver
	logger   *slog.Logger

	// notifyMu keeps each assistant append paired with its notification, so
	// the observer always ends up with the latest turn's citations.
	notifyMu sync.Mutex

	mu         sync.Mutex
	transcript []Turn
	input      string
	inFlight   int
}

// New creates an Engine. A nil observer disables notifications.
func New(q Querier, observer CitationObserver) *Engine {
	if observer == nil {
		observer = ObserverFunc(func([]Citation) {})
	}
	return &Engine{
		querier:  q,
		observer: observer,
		logger:   slog.Default(),
	}
}

// SetInput replaces the pending-input buffer.
func (e *Engine) SetInput(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.input = s
}

// Input returns the pending-input buffer.
func (e *Engine) Input() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input
}

// InFlight reports whether at least one question is awaiting its answer.
func (e *Engine) InFlight() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight > 0
}

// State reports Idle or AwaitingAnswer.
func (e *Engine) State() State {
	if e.InFlight() {
		return AwaitingAnswer
	}
	return Idle
}

// Transcript returns a copy of all turns in append order.
func (e *Engine) Transcript() []Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Turn, len(e.transcript))
	for i, t := range e.transcript {
		out[i] = t.clone()
	}
	return out
}

// LatestCitations returns the citations of the most recent assistant turn.
func (e *Engine) LatestCitations() []Citation {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.transcript) - 1; i >= 0; i-- {
		if e.transcript[i].Speaker == SpeakerAssistant {
			return e.transcript[i].clone().Citations
		}
	}
	return []Citation{}
}

// Begin performs the optimistic half of a question cycle: the user turn is
// appended, the input buffer cleared and the engine marked in flight.
// Blank questions are rejected without touching any state.
func (e *Engine) Begin(text string) (*Pending, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	e.mu.Lock()
	e.transcript = append(e.transcript, Turn{Speaker: SpeakerUser, Text: text})
	e.input = ""
	e.inFlight++
	e.mu.Unlock()

	metrics.QuestionStarted()
	return &Pending{Question: text}, true
}

// Complete applies the answer (or failure) for a pending question, notifies
// the observer and clears the in-flight mark. It returns the appended turn.
func (e *Engine) Complete(p *Pending, resp backend.QueryResponse, err error) Turn {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	e.mu.Lock()
	if p == nil || p.done {
		e.mu.Unlock()
		e.logger.Warn("ignoring completion of an unknown or finished question")
		return Turn{}
	}
	p.done = true

	var turn Turn
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeFailed
		turn = Turn{Speaker: SpeakerAssistant, Text: ErrorPlaceholder, Citations: []Citation{}, Failed: true}
	} else {
		turn = Turn{Speaker: SpeakerAssistant, Text: resp.Answer, Citations: citationsFrom(resp.Sources)}
	}
	e.transcript = append(e.transcript, turn)
	e.inFlight--
	e.mu.Unlock()

	metrics.QuestionFinished(outcome)
	if err != nil {
		e.logger.Warn("question failed", "question", p.Question, "error", err)
	}

	e.observer.CitationsChanged(turn.clone().Citations)
	return turn.clone()
}

// Await sends a pending question to the backend and completes it.
func (e *Engine) Await(ctx context.Context, p *Pending) Turn {
	resp, err := e.querier.Query(ctx, p.Question)
	return e.Complete(p, resp, err)
}

// SubmitQuestion runs one full question cycle. It returns false, and changes
// nothing, when text is blank.
func (e *Engine) SubmitQuestion(ctx context.Context, text string) (Turn, bool) {
	p, ok := e.Begin(text)
	if !ok {
		return Turn{}, false
	}
	return e.Await(ctx, p), true
}

// SubmitInput submits the pending-input buffer.
func (e *Engine) SubmitInput(ctx context.Context) (Turn, bool) {
	return e.SubmitQuestion(ctx, e.Input())
}

func citationsFrom(sources []backend.Source) []Citation {
	citations := make([]Citation, 0, len(sources))
	for _, s := range sources {
		citations = append(citations, Citation{
			SourceFileName: s.FileName,
			ChunkIndex:     s.ChunkIndex,
			Excerpt:        s.Text,
		})
	}
	return citations
}
