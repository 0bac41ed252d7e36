package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lhdbsbz/botproxy/internal/action"
	"github.com/lhdbsbz/botproxy/internal/relay"
)

const (
	NoticeRateLimited = "🚦 请求过于频繁"
	NoticeNotFound    = "❌ 未找到匹配的功能"
)

// Relay is the part of *relay.Proxy the tools need.
type Relay interface {
	Dispatch(ctx context.Context, desc string, sourceGroup int64) (relay.Result, error)
	Catalog() *action.Catalog
	Messages() relay.Messages
	Pending() []relay.PendingRequest
	RateWindow() (used, limit int)
}

// Render turns a dispatch result into the text shown to the requester.
// A dispatched request renders as "" since its answer arrives later in the group.
func Render(res relay.Result, msgs relay.Messages) string {
	switch res.Outcome {
	case relay.OutcomeRateLimited:
		return NoticeRateLimited
	case relay.OutcomeNotFound:
		return NoticeNotFound
	case relay.OutcomeUnreachable:
		return msgs.Unreachable
	}
	return ""
}

// UseBotActionTool asks another bot, in another group, to perform a capability.
type UseBotActionTool struct{ relay Relay }

func (t *UseBotActionTool) Name() string { return "use_bot_action" }
func (t *UseBotActionTool) Description() string {
	return "调用其它 Bot 的能力。action_desc 为功能描述，结果会异步发送到当前群。"
}
func (t *UseBotActionTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action_desc": {"type": "string", "description": "功能描述"}
		},
		"required": ["action_desc"]
	}`)
}

func (t *UseBotActionTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	var p struct {
		ActionDesc string `json:"action_desc"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return "", err
	}
	if p.ActionDesc == "" {
		return "", fmt.Errorf("action_desc is required")
	}
	info, _ := RunInfoFromContext(ctx)

	res, err := t.relay.Dispatch(ctx, p.ActionDesc, info.GroupID)
	if err != nil && !errors.Is(err, relay.ErrSendFailed) {
		return "", err
	}
	// A failed send still leaves the request pending; its timeout notice is the answer.
	return Render(res, t.relay.Messages()), nil
}

// ListBotActionsTool lists the capabilities other bots offer.
type ListBotActionsTool struct{ relay Relay }

func (t *ListBotActionsTool) Name() string { return "list_bot_actions" }
func (t *ListBotActionsTool) Description() string {
	return "List capabilities offered by other bots (description, bot, groups)."
}
func (t *ListBotActionsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *ListBotActionsTool) Execute(_ context.Context, _ json.RawMessage) (string, error) {
	actions := t.relay.Catalog().All()
	if len(actions) == 0 {
		return "No bot actions.", nil
	}
	var b strings.Builder
	for i, a := range actions {
		if i > 0 {
			b.WriteByte('\n')
		}
		groups := make([]string, len(a.Groups))
		for j, g := range a.Groups {
			groups[j] = strconv.FormatInt(g, 10)
		}
		fmt.Fprintf(&b, "%s  bot=%d  groups=%s", a.Desc, a.BotID, strings.Join(groups, ","))
		if a.RequiresMention() {
			b.WriteString("  (@)")
		}
	}
	return b.String(), nil
}

// PendingRequestsTool reports in-flight relay requests and rate-window usage.
type PendingRequestsTool struct{ relay Relay }

func (t *PendingRequestsTool) Name() string { return "pending_requests" }
func (t *PendingRequestsTool) Description() string {
	return "Show how many bot-action requests are waiting for a reply (read-only)."
}
func (t *PendingRequestsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *PendingRequestsTool) Execute(_ context.Context, _ json.RawMessage) (string, error) {
	used, limit := t.relay.RateWindow()
	return fmt.Sprintf("pending: %d\nrate: %d/%d per minute", len(t.relay.Pending()), used, limit), nil
}

// RegisterRelayTools registers use_bot_action, list_bot_actions and pending_requests.
func RegisterRelayTools(r *Registry, rl Relay) {
	r.Register(&UseBotActionTool{relay: rl})
	r.Register(&ListBotActionsTool{relay: rl})
	r.Register(&PendingRequestsTool{relay: rl})
}
