package domain

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"splice.dev/pkg/splice/internal/adapter"
	"splice.dev/pkg/splice/internal/controller"
	m "splice.dev/pkg/splice/internal/model"
)

// replyFunc scripts the messages a sandbox writes back for one request.
type replyFunc func(req m.Request) [][]byte

type scriptedChannel struct {
	reply   replyFunc
	sendErr error

	sent    []m.Request
	pending [][]byte
	closed  bool
}

func (c *scriptedChannel) Send(_ context.Context, message []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}

	var req m.Request
	if err := json.Unmarshal(message, &req); err != nil {
		return err
	}

	c.sent = append(c.sent, req)
	c.pending = append(c.pending, c.reply(req)...)

	return nil
}

func (c *scriptedChannel) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(c.pending) == 0 {
		return nil, adapter.ErrChannelClosed
	}

	message := c.pending[0]
	c.pending = c.pending[1:]

	return message, nil
}

func (c *scriptedChannel) Close() error {
	c.closed = true
	return nil
}

type fakeSandbox struct {
	reply   replyFunc
	openErr error

	mu       sync.Mutex
	specs    []adapter.SandboxSpec
	channels []*scriptedChannel
}

func (s *fakeSandbox) Open(_ context.Context, spec adapter.SandboxSpec) (adapter.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.specs = append(s.specs, spec)
	if s.openErr != nil {
		return nil, s.openErr
	}

	ch := &scriptedChannel{reply: s.reply}
	s.channels = append(s.channels, ch)

	return ch, nil
}

func (s *fakeSandbox) opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.channels)
}

func okReply(id string, value any) []byte {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}

	return mustMarshal(m.Response{ID: id, OK: true, Value: raw})
}

func errReply(id string, payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}

	return mustMarshal(m.Response{ID: id, OK: false, Error: raw})
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}

// callOutputs answers every request by the call at the end of its module.
// Unknown calls fail like a missing binding would.
func callOutputs(outputs map[string]string) replyFunc {
	return func(req m.Request) [][]byte {
		_, call, _ := strings.Cut(req.Code, "export const output = ")

		output, ok := outputs[call]
		if !ok {
			return [][]byte{errReply(req.ID, map[string]string{
				"name":    "ReferenceError",
				"message": call + " is not defined",
			})}
		}

		return [][]byte{okReply(req.ID, output)}
	}
}

type memoryJournal struct {
	mu      sync.Mutex
	entries []m.Evaluation
	err     error
}

func (j *memoryJournal) Append(_ context.Context, entry m.Evaluation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.err != nil {
		return j.err
	}

	j.entries = append(j.entries, entry)

	return nil
}

func (j *memoryJournal) Load(_ context.Context) ([]m.Evaluation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return append([]m.Evaluation(nil), j.entries...), j.err
}

func (j *memoryJournal) Close() error {
	return nil
}

// recordingUI keeps what the workflow displays.
type recordingUI struct {
	mu        sync.Mutex
	started   []controller.StartOption
	plan      []m.File
	parallel  int
	completed []m.Report
	summary   []m.Report
	listings  []m.Listing
	entries   []m.Evaluation
	closed    bool
}

func (u *recordingUI) Start(_ context.Context, options ...controller.StartOption) error {
	u.started = options
	return nil
}

func (u *recordingUI) Close(context.Context) {
	u.closed = true
}

func (u *recordingUI) DisplayPlan(_ context.Context, files []m.File, parallel int) {
	u.plan = files
	u.parallel = parallel
}

func (u *recordingUI) DisplayStarted(context.Context, m.File) {}

func (u *recordingUI) DisplayCompleted(_ context.Context, report m.Report) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.completed = append(u.completed, report)
}

func (u *recordingUI) DisplaySummary(_ context.Context, reports []m.Report) {
	u.summary = reports
}

func (u *recordingUI) DisplayListing(_ context.Context, listings []m.Listing) error {
	u.listings = listings
	return nil
}

func (u *recordingUI) DisplayJournal(_ context.Context, entries []m.Evaluation) error {
	u.entries = entries
	return nil
}
