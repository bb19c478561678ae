package router

import (
	"context"
	"fmt"

	"conclave/pkg/protocol"
)

// Transport sends literal text to an expert's transport coordinate. The
// router depends only on this narrow capability; session lifecycle belongs
// to the layer that registered the expert.
type Transport interface {
	DeliverText(ctx context.Context, locator, text string) error
}

// CommandRunner abstracts command execution for testability.
// Production implementation uses os/exec; tests provide a mock.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// BufferSeq hands out unique tmux buffer names. One sequence is owned by
// one transport; there is no process-wide counter.
type BufferSeq struct {
	prefix string
	n      int
}

// NewBufferSeq creates a sequence whose names start with prefix.
func NewBufferSeq(prefix string) *BufferSeq {
	if prefix == "" {
		prefix = "conclave-msg"
	}
	return &BufferSeq{prefix: prefix}
}

// Next returns the next unique buffer name.
func (b *BufferSeq) Next() string {
	b.n++
	return fmt.Sprintf("%s-%d", b.prefix, b.n)
}

// TmuxTransport delivers message text to a tmux pane via `tmux set-buffer`
// and `paste-buffer`. The buffer path treats the text as completely literal,
// preventing shell injection through tmux, and preserves the multi-line
// message block.
type TmuxTransport struct {
	sessionName string
	runner      CommandRunner
	seq         *BufferSeq
}

// NewTmuxTransport creates a TmuxTransport. If sessionName is empty the
// default session "conclave" is used.
func NewTmuxTransport(sessionName string, runner CommandRunner, seq *BufferSeq) *TmuxTransport {
	if sessionName == "" {
		sessionName = "conclave"
	}
	if seq == nil {
		seq = NewBufferSeq("")
	}
	return &TmuxTransport{
		sessionName: sessionName,
		runner:      runner,
		seq:         seq,
	}
}

// DeliverText sends text to the pane addressed by locator. Before sending,
// it verifies the tmux session exists: if the session is dead, tmux
// send-keys fails silently and messages would vanish undelivered.
func (t *TmuxTransport) DeliverText(ctx context.Context, locator, text string) error {
	if _, err := t.runner.Run(ctx, "tmux", "has-session", "-t", t.sessionName); err != nil {
		return &protocol.TransportError{Target: locator, Reason: fmt.Sprintf("tmux session %s not found: %v", t.sessionName, err)}
	}

	buf := t.seq.Next()

	// Step 1: set the message into a named tmux buffer.
	if _, err := t.runner.Run(ctx, "tmux", "set-buffer", "-b", buf, text); err != nil {
		return &protocol.TransportError{Target: locator, Reason: fmt.Sprintf("tmux set-buffer: %v", err)}
	}

	// Step 2: paste the buffer to the target pane as literal text, deleting
	// the buffer afterwards.
	if _, err := t.runner.Run(ctx, "tmux", "paste-buffer", "-b", buf, "-t", locator, "-d"); err != nil {
		return &protocol.TransportError{Target: locator, Reason: fmt.Sprintf("tmux paste-buffer to %s: %v", locator, err)}
	}

	// Step 3: send Enter so the pane's process sees the message.
	if _, err := t.runner.Run(ctx, "tmux", "send-keys", "-t", locator, "Enter"); err != nil {
		return &protocol.TransportError{Target: locator, Reason: fmt.Sprintf("tmux send-keys Enter to %s: %v", locator, err)}
	}

	return nil
}
