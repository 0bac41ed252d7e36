// Package relay correlates capability requests sent to remote bots with their
// asynchronous replies.
//
// A dispatched request lives in the Table until exactly one of two consumers takes it:
// the reply matcher, when a qualifying message arrives, or the request's expiry
// watchdog. Whoever wins Table.Take delivers; the loser does nothing.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/lhdbsbz/botproxy/internal/action"
	"github.com/lhdbsbz/botproxy/internal/ratelimit"
	"github.com/oklog/ulid/v2"
)

// ResultPrefix marks a relayed reply in the source group.
const ResultPrefix = "🤖 结果：\n"

const sendTimeout = 10 * time.Second

var (
	ErrClosed     = errors.New("relay closed")
	ErrSendFailed = errors.New("send failed")
)

// Sender is the host's outbound transport.
type Sender interface {
	SendGroupMessage(ctx context.Context, groupID int64, text string) error
}

// Messages are the user-facing texts the relay sends on its own.
type Messages struct {
	Timeout     string
	Unreachable string
}

// Options configures a Proxy. Zero fields fall back to production defaults.
type Options struct {
	RatePerMinute int
	Messages      Messages
	EventSink     EventSink

	Clock func() time.Time
	Pick  func(n int) int // index into an action's groups
	NewID func() string
}

// Proxy owns the action catalog, the rate window and the correlation table.
type Proxy struct {
	sender   Sender
	catalog  atomic.Pointer[action.Catalog]
	messages atomic.Pointer[Messages]
	limiter  *ratelimit.Window
	table    *Table
	events   eventEmitter
	closed   atomic.Bool

	now   func() time.Time
	pick  func(n int) int
	newID func() string
}

func New(sender Sender, catalog *action.Catalog, opts Options) *Proxy {
	p := &Proxy{
		sender: sender,
		table:  NewTable(),
		now:    opts.Clock,
		pick:   opts.Pick,
		newID:  opts.NewID,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.pick == nil {
		p.pick = rand.IntN
	}
	if p.newID == nil {
		p.newID = func() string { return ulid.Make().String() }
	}
	p.limiter = ratelimit.NewWindow(opts.RatePerMinute).WithClock(p.now)
	p.events.sink = opts.EventSink
	p.SetCatalog(catalog)
	p.SetMessages(opts.Messages)
	return p
}

// Catalog returns the action catalog currently in use.
func (p *Proxy) Catalog() *action.Catalog {
	return p.catalog.Load()
}

// SetCatalog swaps the catalog. In-flight requests keep the action they were created with.
func (p *Proxy) SetCatalog(c *action.Catalog) {
	if c == nil {
		c = action.NewCatalog(nil)
	}
	p.catalog.Store(c)
}

func (p *Proxy) Messages() Messages {
	return *p.messages.Load()
}

func (p *Proxy) SetMessages(m Messages) {
	p.messages.Store(&m)
}

func (p *Proxy) SetRateLimit(perMinute int) {
	p.limiter.SetLimit(perMinute)
}

// RateWindow returns the admissions counted in the current minute and the cap.
func (p *Proxy) RateWindow() (used, limit int) {
	return p.limiter.Len(), p.limiter.Limit()
}

// Pending returns a snapshot of in-flight requests, oldest first.
func (p *Proxy) Pending() []PendingRequest {
	return p.table.Snapshot()
}

// Close drops every pending request without notifying anyone.
func (p *Proxy) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	n := p.table.Close()
	slog.Info("relay closed", "discarded", n)
}

func (p *Proxy) deliver(groupID int64, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	return p.sender.SendGroupMessage(ctx, groupID, text)
}
