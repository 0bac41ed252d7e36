package relay

import (
	"slices"
	"sync"
	"time"

	"github.com/lhdbsbz/botproxy/internal/action"
	"github.com/lhdbsbz/botproxy/internal/message"
)

// PendingRequest is an outbound request waiting for the remote bot's reply.
type PendingRequest struct {
	ID          string    `json:"id"`
	ActionID    string    `json:"actionId"`
	BotID       int64     `json:"botId"`
	GroupID     int64     `json:"groupId"`     // where the command was sent
	SourceGroup int64     `json:"sourceGroup"` // where the result or timeout notice goes
	ReturnMode  string    `json:"returnMode"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpireAt    time.Time `json:"expireAt"`

	seq uint64
}

// Expired reports whether now is past ExpireAt. ExpireAt itself still counts as live.
func (r PendingRequest) Expired(now time.Time) bool {
	return now.After(r.ExpireAt)
}

// Matches reports whether msg is an acceptable reply at time now.
func (r PendingRequest) Matches(msg message.InboundMessage, now time.Time) bool {
	if msg.SenderID != r.BotID {
		return false
	}
	if msg.GroupID != r.GroupID {
		return false
	}
	if r.Expired(now) {
		return false
	}
	if r.ReturnMode == action.ReturnModeMention && !msg.AtMe {
		return false
	}
	return true
}

type tableEntry struct {
	req   PendingRequest
	timer *time.Timer
}

// Table maps request ids to pending requests.
// Take is the only way an entry leaves the table while it is open.
type Table struct {
	mu      sync.Mutex
	entries map[string]*tableEntry
	seq     uint64
	closed  bool
}

func NewTable() *Table {
	return &Table{entries: make(map[string]*tableEntry)}
}

// Put inserts req. It returns false if the table is closed or the id is taken.
func (t *Table) Put(req PendingRequest) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if _, exists := t.entries[req.ID]; exists {
		return false
	}
	t.seq++
	req.seq = t.seq
	t.entries[req.ID] = &tableEntry{req: req}
	return true
}

// Arm schedules fn after delay and ties the timer to the entry so Close can stop it.
// Negative delays fire immediately. Returns false if id is absent.
func (t *Table) Arm(id string, delay time.Duration, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return false
	}
	e.timer = time.AfterFunc(max(0, delay), fn)
	return true
}

// Take removes and returns the entry for id. Exactly one concurrent caller
// observes ok == true for a given id; every later call is a no-op.
func (t *Table) Take(id string) (PendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return PendingRequest{}, false
	}
	delete(t.entries, id)
	return e.req, true
}

// Snapshot returns the pending requests in insertion order.
func (t *Table) Snapshot() []PendingRequest {
	t.mu.Lock()
	out := make([]PendingRequest, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.req)
	}
	t.mu.Unlock()

	slices.SortFunc(out, func(a, b PendingRequest) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return out
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close discards every entry without resolving it and stops their timers.
// Later Puts are refused. Returns the number of entries dropped.
func (t *Table) Close() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	n := len(t.entries)
	for id, e := range t.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(t.entries, id)
	}
	return n
}
