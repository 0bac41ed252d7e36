package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lhdbsbz/botproxy/internal/message"
	"github.com/lhdbsbz/botproxy/internal/tool"
)

// handleInboundMessage runs the reply matcher on one host message event.
// The result's "handled" tells the bridge to stop propagating the event. A redelivery
// gets the verdict of the first delivery.
func (s *Server) handleInboundMessage(ctx context.Context, conn *Conn, params json.RawMessage) (any, error) {
	var p InboundMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	msg := message.InboundMessage{
		Channel:   p.Channel,
		GroupID:   p.GroupID,
		SenderID:  p.SenderID,
		Text:      p.Text,
		AtMe:      p.AtMe,
		MessageID: p.MessageID,
	}
	if msg.Channel == "" {
		msg.Channel = conn.Channel
	}

	key := msg.DedupKey()
	if s.Dedup != nil {
		if handled, dup := s.Dedup.Claim(key); dup {
			return map[string]any{"handled": handled, "duplicate": true}, nil
		}
	}
	handled := s.Relay.HandleInbound(ctx, msg)
	if s.Dedup != nil {
		s.Dedup.Resolve(key, handled)
	}
	return map[string]any{"handled": handled}, nil
}

// handleToolExecute runs a tool on behalf of a chat event in p.GroupID.
func (s *Server) handleToolExecute(ctx context.Context, conn *Conn, params json.RawMessage) (any, error) {
	var p ToolExecuteParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	ctx = tool.WithRunInfo(ctx, tool.RunInfo{
		Channel:  conn.Channel,
		GroupID:  p.GroupID,
		SenderID: p.SenderID,
	})
	text, err := s.Tools.Execute(ctx, p.Name, p.Params)
	if err != nil {
		return nil, err
	}
	return map[string]any{"text": text}, nil
}

// invoke runs use_bot_action for the HTTP API.
func (s *Server) invoke(ctx context.Context, p InvokeParams) (string, error) {
	params, err := json.Marshal(map[string]string{"action_desc": p.Desc})
	if err != nil {
		return "", err
	}
	ctx = tool.WithRunInfo(ctx, tool.RunInfo{Channel: s.Config.Gateway.Channel, GroupID: p.SourceGroup})
	return s.Tools.Execute(ctx, "use_bot_action", params)
}

func (s *Server) actionsView() map[string]any {
	out := map[string]any{
		"actions":  s.Relay.Catalog().All(),
		"failures": []any{},
	}
	if r := s.report.Load(); r != nil {
		out["failures"] = r.Failures
	}
	return out
}
