package relay

import (
	"context"
	"log/slog"

	"github.com/lhdbsbz/botproxy/internal/message"
)

// HandleInbound checks msg against every pending request, oldest first, and
// resolves at most one. It returns true when msg was consumed as a reply, in which
// case the host should stop propagating the event.
//
// Expired entries that the watchdog has not reaped yet never match.
func (p *Proxy) HandleInbound(ctx context.Context, msg message.InboundMessage) bool {
	if p.closed.Load() {
		return false
	}
	now := p.now()
	var candidates []PendingRequest
	for _, req := range p.table.Snapshot() {
		if req.Matches(msg, now) {
			candidates = append(candidates, req)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	if len(candidates) > 1 {
		ids := make([]string, len(candidates))
		for i, c := range candidates {
			ids[i] = c.ID
		}
		slog.Warn("relay reply is ambiguous, resolving oldest request", "bot", msg.SenderID, "group", msg.GroupID, "candidates", ids)
	}

	for _, c := range candidates {
		req, ok := p.table.Take(c.ID)
		if !ok {
			continue
		}
		slog.Info("relay request resolved", "request", req.ID, "bot", req.BotID, "group", req.GroupID, "sourceGroup", req.SourceGroup)
		p.events.emit(EventResolved, req, msg.Text)
		if err := p.sender.SendGroupMessage(ctx, req.SourceGroup, ResultPrefix+msg.Text); err != nil {
			slog.Warn("relay result send failed", "request", req.ID, "sourceGroup", req.SourceGroup, "error", err)
		}
		return true
	}
	return false
}
