// Package answer turns a question into a grounded, cited answer: the
// query is rewritten with session context, relevant chunks retrieved,
// the model called under a citation contract, and its output filtered
// so every kept sentence cites a chunk retrieved this turn.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/answerdock/answerdock/internal/chunk"
	"github.com/answerdock/answerdock/internal/session"
)

// Outcome says how the turn ended. All non-answered outcomes render
// the fixed refusal text.
type Outcome string

const (
	// OutcomeAnswered means at least one grounded sentence survived.
	OutcomeAnswered Outcome = "answered"
	// OutcomeNoContext means retrieval found nothing relevant.
	OutcomeNoContext Outcome = "no_context"
	// OutcomeModelCallFailed means the generation call errored.
	OutcomeModelCallFailed Outcome = "model_call_failed"
	// OutcomeModelOutputInvalid means the model broke the JSON contract.
	OutcomeModelOutputInvalid Outcome = "model_output_invalid"
	// OutcomeNoValidCitations means no sentence cited a retrieved chunk.
	OutcomeNoValidCitations Outcome = "no_valid_citations"
)

// Answer is one turn's result.
type Answer struct {
	Text       string      `json:"text"`
	Sentences  []Sentence  `json:"sentences,omitempty"`
	References []Reference `json:"references,omitempty"`
	Outcome    Outcome     `json:"outcome"`
}

// Retriever finds chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]chunk.Chunk, error)
}

// Memory is the session state consumed by the engine. Satisfied by
// session.Store.
type Memory interface {
	RecordTurn(id, role, text string)
	Turns(id string) []session.Turn
}

// Engine orchestrates one question-answering turn.
type Engine struct {
	retriever Retriever
	model     Model
	memory    Memory
	topK      int
	logger    *slog.Logger
}

// NewEngine creates an Engine. topK <= 0 defers to the retriever's
// default.
func NewEngine(retriever Retriever, model Model, memory Memory, topK int, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		retriever: retriever,
		model:     model,
		memory:    memory,
		topK:      topK,
		logger:    logger.With("component", "answer"),
	}
}

// Answer runs one turn. Degraded turns (nothing retrieved, model
// failure, contract violation, citations outside the retrieved set)
// produce the fixed refusal rather than an error; only retrieval
// infrastructure failures surface as errors. Session memory records
// the user's original question, not the rewritten retrieval query.
func (e *Engine) Answer(ctx context.Context, query, sessionID string) (*Answer, error) {
	rewritten := session.RewriteQuery(query, e.memory.Turns(sessionID))

	chunks, err := e.retriever.Retrieve(ctx, rewritten, e.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	if len(chunks) == 0 {
		e.logger.Info("no relevant context", "session_id", sessionID)
		return e.finish(query, sessionID, e.refusal(OutcomeNoContext)), nil
	}

	raw, err := e.model.Complete(ctx, systemPrompt, buildPrompt(rewritten, chunks))
	if err != nil {
		e.logger.Warn("model call failed", "session_id", sessionID, "error", err)
		return e.finish(query, sessionID, e.refusal(OutcomeModelCallFailed)), nil
	}

	out, err := parseModelOutput(raw)
	if err != nil {
		e.logger.Warn("model output unparseable", "session_id", sessionID, "error", err)
		return e.finish(query, sessionID, e.refusal(OutcomeModelOutputInvalid)), nil
	}

	sentences, refs := ground(out, chunks)
	if sentences == nil {
		e.logger.Info("no citations survived grounding", "session_id", sessionID)
		return e.finish(query, sessionID, e.refusal(OutcomeNoValidCitations)), nil
	}

	texts := make([]string, len(sentences))
	for i, s := range sentences {
		texts[i] = s.Text
	}
	ans := &Answer{
		Text:       strings.Join(texts, " "),
		Sentences:  sentences,
		References: refs,
		Outcome:    OutcomeAnswered,
	}
	return e.finish(query, sessionID, ans), nil
}

// finish records the turn in session memory and returns the answer.
func (e *Engine) finish(query, sessionID string, ans *Answer) *Answer {
	e.memory.RecordTurn(sessionID, session.RoleUser, query)
	e.memory.RecordTurn(sessionID, session.RoleAssistant, ans.Text)
	return ans
}

func (e *Engine) refusal(outcome Outcome) *Answer {
	return &Answer{Text: Refusal, Outcome: outcome}
}
