package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/lhdbsbz/botproxy/internal/message"
)

var ErrNoBridge = errors.New("no bridge connected for channel")

// GroupSender implements relay.Sender by pushing outbound.message events to the
// bridges of one channel. Delivery is best-effort: there is no acknowledgement.
type GroupSender struct {
	conns   *ConnManager
	channel string
}

func NewGroupSender(conns *ConnManager, channel string) *GroupSender {
	return &GroupSender{conns: conns, channel: channel}
}

func (g *GroupSender) SendGroupMessage(ctx context.Context, groupID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n := g.conns.BroadcastToChannel(g.channel, EventOutboundMessage, message.OutboundMessage{
		Channel: g.channel,
		GroupID: groupID,
		Text:    text,
	})
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNoBridge, g.channel)
	}
	return nil
}
