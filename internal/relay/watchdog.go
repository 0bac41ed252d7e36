package relay

import "log/slog"

// armWatchdog schedules the expiry of req. The delay is recomputed from the
// clock at arming time and never negative.
func (p *Proxy) armWatchdog(req PendingRequest) {
	delay := req.ExpireAt.Sub(p.now())
	p.table.Arm(req.ID, delay, func() { p.expire(req.ID) })
}

// expire resolves id with the timeout notice unless the matcher took it first.
func (p *Proxy) expire(id string) {
	req, ok := p.table.Take(id)
	if !ok {
		return
	}
	msg := p.Messages().Timeout
	slog.Info("relay request timed out", "request", id, "bot", req.BotID, "group", req.GroupID, "sourceGroup", req.SourceGroup)
	p.events.emit(EventTimeout, req, msg)
	if err := p.deliver(req.SourceGroup, msg); err != nil {
		slog.Warn("relay timeout notice send failed", "request", id, "sourceGroup", req.SourceGroup, "error", err)
	}
}
