package modem

import (
	"context"
	"sync"
)

// ScriptTransport is a test helper that plays back scripted device
// responses. Each WriteLine looks up the next scripted reply for that
// command text and queues its lines for subsequent PollLine calls; a
// command with no scripted reply answers with a bare "OK".
//
// Exported for use in tests.
type ScriptTransport struct {
	mu      sync.Mutex
	writes  []string
	replies map[string][][]string
	pending []string
	closed  bool
}

// NewScriptTransport creates an empty scripted transport.
func NewScriptTransport() *ScriptTransport {
	return &ScriptTransport{replies: make(map[string][][]string)}
}

// Dial lets a ScriptTransport double as its own Dialer.
func (t *ScriptTransport) Dial(ctx context.Context) (Transport, error) {
	return t, nil
}

// Reply queues one response for the given command text. Replies for
// the same command play back in the order they were added; the last
// one repeats.
func (t *ScriptTransport) Reply(cmd string, lines ...string) *ScriptTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[cmd] = append(t.replies[cmd], lines)
	return t
}

// Silence makes the given command produce no response at all, so
// every poll after it comes back empty.
func (t *ScriptTransport) Silence(cmd string) *ScriptTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies[cmd] = append(t.replies[cmd], nil)
	return t
}

func (t *ScriptTransport) WriteLine(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, line)

	queue, ok := t.replies[line]
	if !ok {
		t.pending = []string{"OK"}
		return nil
	}
	reply := queue[0]
	if len(queue) > 1 {
		t.replies[line] = queue[1:]
	}
	t.pending = append([]string(nil), reply...)
	return nil
}

func (t *ScriptTransport) PollLine() (string, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pending) == 0 {
		return "", false, nil
	}
	line := t.pending[0]
	t.pending = t.pending[1:]
	return line, true, nil
}

func (t *ScriptTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Writes returns every command line written so far.
func (t *ScriptTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

// WriteCount counts how many times the given command was written.
func (t *ScriptTransport) WriteCount(cmd string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, w := range t.writes {
		if w == cmd {
			n++
		}
	}
	return n
}

// Closed reports whether Close was called.
func (t *ScriptTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
