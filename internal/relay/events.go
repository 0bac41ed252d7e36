package relay

import (
	"sync/atomic"
	"time"
)

// EventType constants
const (
	EventDispatched = "dispatched"
	EventResolved   = "resolved"
	EventTimeout    = "timeout"
)

// Event is a lifecycle notification for one relay request.
// Gateway broadcasts these to connected clients.
type Event struct {
	Type        string    `json:"type"`
	RequestID   string    `json:"requestId"`
	Seq         int64     `json:"seq"`
	Timestamp   time.Time `json:"timestamp"`
	BotID       int64     `json:"botId"`
	GroupID     int64     `json:"groupId"`
	SourceGroup int64     `json:"sourceGroup"`

	// For dispatched: the command sent. For resolved: the reply text.
	Text string `json:"text,omitempty"`
}

// EventSink receives relay events. It must not block.
type EventSink func(Event)

type eventEmitter struct {
	sink EventSink
	seq  atomic.Int64
}

func (e *eventEmitter) emit(eventType string, req PendingRequest, text string) {
	if e.sink == nil {
		return
	}
	e.sink(Event{
		Type:        eventType,
		RequestID:   req.ID,
		Seq:         e.seq.Add(1),
		Timestamp:   time.Now(),
		BotID:       req.BotID,
		GroupID:     req.GroupID,
		SourceGroup: req.SourceGroup,
		Text:        text,
	})
}
