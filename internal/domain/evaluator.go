package domain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"splice.dev/pkg/splice/internal/adapter"
	m "splice.dev/pkg/splice/internal/model"
)

// Evaluator executes a generated module and returns its string output.
type Evaluator interface {
	Execute(ctx context.Context, code string) (string, error)
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, code string) (string, error)

// Execute implements Evaluator.
func (f EvaluatorFunc) Execute(ctx context.Context, code string) (string, error) {
	return f(ctx, code)
}

// Snippet builds the module evaluated for one call.
func Snippet(imports, definition, call string) string {
	return imports + "\n\n" + definition + "\n\n" + "export const output = " + call
}

type sandboxEvaluator struct {
	sandbox adapter.Sandbox
	spec    adapter.SandboxSpec
}

// NewSandboxEvaluator returns an Evaluator that opens a fresh sandbox for
// every call and closes it once the exchange resolves.
func NewSandboxEvaluator(sandbox adapter.Sandbox, spec adapter.SandboxSpec) Evaluator {
	return &sandboxEvaluator{sandbox: sandbox, spec: spec}
}

func (e *sandboxEvaluator) Execute(ctx context.Context, code string) (string, error) {
	channel, err := e.sandbox.Open(ctx, e.spec)
	if err != nil {
		slog.Error("Failed to open sandbox", "dir", e.spec.Dir, "error", err)
		return "", fmt.Errorf("%w: open sandbox: %w", ErrEvaluation, err)
	}

	defer func() {
		if err := channel.Close(); err != nil {
			slog.Error("Failed to close sandbox", "dir", e.spec.Dir, "error", err)
		}
	}()

	return Exchange(ctx, channel, code)
}

// Exchange sends one execute request over channel and waits for the response
// carrying the same id. Messages that are not JSON or carry another id are
// ignored.
func Exchange(ctx context.Context, channel adapter.Channel, code string) (string, error) {
	id, err := newRequestID()
	if err != nil {
		return "", fmt.Errorf("generate request id: %w", err)
	}

	request, err := json.Marshal(m.Request{ID: id, Method: m.MethodExecute, Code: code})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	if err := channel.Send(ctx, request); err != nil {
		return "", fmt.Errorf("%w: send request: %w", ErrEvaluation, err)
	}

	for {
		message, err := channel.Receive(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: receive response: %w", ErrEvaluation, err)
		}

		var response m.Response
		if err := json.Unmarshal(message, &response); err != nil {
			slog.Debug("Ignoring sandbox message", "message", string(message))
			continue
		}

		if response.ID != id {
			continue
		}

		if !response.OK {
			return "", fmt.Errorf("%w: %s", ErrEvaluation, describeError(response.Error))
		}

		return outputValue(response.Value)
	}
}

// outputValue normalizes a response value: absent or null is the empty
// string, anything other than a string is an error.
func outputValue(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("%w: output is not a string: %s", ErrEvaluation, raw)
	}

	return value, nil
}

// describeError renders the error payload of a failed response.
func describeError(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "unknown error"
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var object struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(raw, &object); err == nil && object.Message != "" {
		if object.Name != "" {
			return object.Name + ": " + object.Message
		}

		return object.Message
	}

	return string(raw)
}

func newRequestID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}

type journalingEvaluator struct {
	next    Evaluator
	journal adapter.JournalStore
	source  m.Path
}

// NewJournalingEvaluator records every exchange of next in journal.
// Journal failures are logged and never fail the evaluation.
func NewJournalingEvaluator(next Evaluator, journal adapter.JournalStore, source m.Path) Evaluator {
	return &journalingEvaluator{next: next, journal: journal, source: source}
}

func (e *journalingEvaluator) Execute(ctx context.Context, code string) (string, error) {
	started := time.Now()
	output, err := e.next.Execute(ctx, code)

	entry := m.Evaluation{
		Source:   e.source,
		Code:     code,
		Output:   output,
		Started:  started,
		Duration: time.Since(started),
	}

	if err != nil {
		entry.Error = err.Error()
	}

	if appendErr := e.journal.Append(ctx, entry); appendErr != nil {
		slog.Error("Failed to journal evaluation", "source", e.source, "error", appendErr)
	}

	return output, err
}
