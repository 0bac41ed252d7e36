package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lhdbsbz/botproxy/internal/action"
)

// Outcome is how a Dispatch call ended.
type Outcome int

const (
	OutcomeDispatched Outcome = iota
	OutcomeRateLimited
	OutcomeNotFound
	OutcomeUnreachable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnreachable:
		return "unreachable"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result describes a Dispatch call. RequestID, GroupID and Action are set only
// when Outcome is OutcomeDispatched.
type Result struct {
	Outcome   Outcome
	RequestID string
	GroupID   int64
	Action    action.Action
}

// Dispatch finds the first action whose description contains desc and sends its
// command to one of the action's groups. The reply, or a timeout notice, is
// later delivered to sourceGroup.
//
// The rate window is charged before the lookup, so misses count too.
// When the send itself fails the request stays pending, so the requester still
// receives one timeout notice; the error wraps ErrSendFailed.
func (p *Proxy) Dispatch(ctx context.Context, desc string, sourceGroup int64) (Result, error) {
	if p.closed.Load() {
		return Result{}, ErrClosed
	}
	if !p.limiter.Admit() {
		slog.Info("relay request rate limited", "desc", desc, "sourceGroup", sourceGroup)
		return Result{Outcome: OutcomeRateLimited}, nil
	}

	act, ok := p.Catalog().Find(desc)
	if !ok {
		slog.Info("relay action not found", "desc", desc)
		return Result{Outcome: OutcomeNotFound}, nil
	}
	if len(act.Groups) == 0 {
		slog.Warn("relay action has no groups", "action", act.ID, "desc", act.Desc)
		return Result{Outcome: OutcomeUnreachable, Action: act}, nil
	}

	target := act.Groups[p.pick(len(act.Groups))]
	now := p.now()
	req := PendingRequest{
		ID:          p.newID(),
		ActionID:    act.ID,
		BotID:       act.BotID,
		GroupID:     target,
		SourceGroup: sourceGroup,
		ReturnMode:  act.ReturnMode,
		CreatedAt:   now,
		ExpireAt:    now.Add(act.Timeout),
	}
	if !p.table.Put(req) {
		return Result{}, ErrClosed
	}
	p.armWatchdog(req)

	res := Result{Outcome: OutcomeDispatched, RequestID: req.ID, GroupID: target, Action: act}
	slog.Info("relay request dispatched", "request", req.ID, "group", target, "bot", act.BotID, "command", act.Command)
	p.events.emit(EventDispatched, req, act.Command)

	if err := p.sender.SendGroupMessage(ctx, target, act.Command); err != nil {
		slog.Warn("relay command send failed", "request", req.ID, "group", target, "error", err)
		return res, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return res, nil
}
