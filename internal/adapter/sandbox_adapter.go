package adapter

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	m "splice.dev/pkg/splice/internal/model"
)

//go:embed runner.mjs
var runnerScript []byte

// DefaultSandboxCommand runs the embedded runner with Deno.
var DefaultSandboxCommand = []string{"deno", "run", "--allow-all"}

// ErrChannelClosed is returned when the sandbox stops before replying.
var ErrChannelClosed = errors.New("sandbox channel closed")

// Channel is a bidirectional, line-oriented message pipe to a sandbox.
type Channel interface {
	// Send writes one message.
	Send(ctx context.Context, message []byte) error
	// Receive blocks until the next message arrives or ctx ends.
	Receive(ctx context.Context) ([]byte, error)
	// Close releases the sandbox and every artifact staged for it.
	Close() error
}

// SandboxSpec describes where generated modules are staged.
type SandboxSpec struct {
	// Dir is the directory of the macro file, so relative imports resolve.
	Dir m.Path
	// Ext is the extension of the macro file, dot included.
	Ext string
	// Keep retains staged modules after the sandbox closes.
	Keep bool
}

// Sandbox starts isolated evaluators.
type Sandbox interface {
	Open(ctx context.Context, spec SandboxSpec) (Channel, error)
}

// ProcessSandbox runs every evaluator as a separate runtime process.
type ProcessSandbox struct {
	command []string
}

// NewProcessSandbox returns a sandbox running command followed by the runner
// script and the staged module path. An empty command uses DefaultSandboxCommand.
func NewProcessSandbox(command []string) *ProcessSandbox {
	if len(command) == 0 {
		command = DefaultSandboxCommand
	}

	return &ProcessSandbox{command: command}
}

// StagedPath returns the hidden module path used for id in spec.Dir.
func StagedPath(spec SandboxSpec, id string) m.Path {
	return m.Path(filepath.Join(string(spec.Dir), "."+id+".splice"+spec.Ext))
}

// Open starts one runtime process. The process is killed when ctx ends or
// the channel is closed.
func (s *ProcessSandbox) Open(ctx context.Context, spec SandboxSpec) (Channel, error) {
	runner, err := writeRunner()
	if err != nil {
		return nil, err
	}

	id, err := stageID()
	if err != nil {
		_ = os.Remove(runner)
		return nil, err
	}

	staged := StagedPath(spec, id)

	args := append(append([]string{}, s.command[1:]...), runner, string(staged))

	// #nosec G204 - the command comes from configuration
	cmd := exec.CommandContext(ctx, s.command[0], args...)
	cmd.Dir = string(spec.Dir)

	ch := &processChannel{
		cmd:    cmd,
		runner: runner,
		staged: staged,
		keep:   spec.Keep,
		lines:  make(chan []byte),
		done:   make(chan struct{}),
	}
	cmd.Stderr = &ch.stderr

	if ch.stdin, err = cmd.StdinPipe(); err != nil {
		ch.removeArtifacts()
		return nil, fmt.Errorf("sandbox stdin: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		ch.removeArtifacts()
		return nil, fmt.Errorf("sandbox stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		ch.removeArtifacts()
		slog.Error("Failed to start sandbox", "command", s.command, "error", err)

		return nil, fmt.Errorf("start sandbox %q: %w", s.command[0], err)
	}

	slog.Debug("Started sandbox", "pid", cmd.Process.Pid, "staged", staged)

	go ch.read(stdout)

	return ch, nil
}

type processChannel struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	runner string
	staged m.Path
	keep   bool

	lines chan []byte
	done  chan struct{}

	closeOnce sync.Once
	waitOnce  sync.Once
	waitErr   error
}

func (c *processChannel) read(stdout io.Reader) {
	defer close(c.lines)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)

	for scanner.Scan() {
		line := bytes.Clone(scanner.Bytes())

		select {
		case c.lines <- line:
		case <-c.done:
			return
		}
	}
}

func (c *processChannel) Send(ctx context.Context, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.stdin.Write(append(bytes.Clone(message), '\n')); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	return nil
}

func (c *processChannel) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case line, ok := <-c.lines:
		if ok {
			return line, nil
		}

		// stdout is drained, so waiting is safe and stderr is complete
		_ = c.wait()

		if detail := strings.TrimSpace(c.stderr.String()); detail != "" {
			return nil, fmt.Errorf("%w: %s", ErrChannelClosed, detail)
		}

		return nil, ErrChannelClosed
	}
}

func (c *processChannel) wait() error {
	c.waitOnce.Do(func() {
		c.waitErr = c.cmd.Wait()
	})

	return c.waitErr
}

func (c *processChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.stdin.Close()

		if c.cmd.Process != nil {
			_ = c.cmd.Process.Kill()
		}

		_ = c.wait()
		c.removeArtifacts()
	})

	return nil
}

func (c *processChannel) removeArtifacts() {
	if err := os.Remove(c.runner); err != nil && !os.IsNotExist(err) {
		slog.Error("Failed to remove runner", "path", c.runner, "error", err)
	}

	if c.keep {
		slog.Debug("Keeping staged module", "path", c.staged)
		return
	}

	if err := os.Remove(string(c.staged)); err != nil && !os.IsNotExist(err) {
		slog.Error("Failed to remove staged module", "path", c.staged, "error", err)
	}
}

func writeRunner() (string, error) {
	file, err := os.CreateTemp("", "splice-runner-*.mjs")
	if err != nil {
		return "", fmt.Errorf("create runner: %w", err)
	}

	defer func() { _ = file.Close() }()

	if _, err := file.Write(runnerScript); err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("write runner: %w", err)
	}

	return file.Name(), nil
}

func stageID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate stage id: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
