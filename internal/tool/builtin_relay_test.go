package tool

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lhdbsbz/botproxy/internal/action"
	"github.com/lhdbsbz/botproxy/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *fakeSender) SendGroupMessage(_ context.Context, _ int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return s.err
}

func newRegistry(t *testing.T, sender relay.Sender, rate int) (*Registry, *relay.Proxy) {
	t.Helper()
	catalog := action.NewCatalog([]action.Action{
		{ID: "a1", BotID: 1001, Groups: []int64{2001}, Command: "ping", Desc: "网络测试", Timeout: time.Minute},
		{ID: "a2", BotID: 1002, Command: "draw", ReturnMode: "@", Desc: "画图"},
	})
	p := relay.New(sender, catalog, relay.Options{
		RatePerMinute: rate,
		Messages:      relay.Messages{Timeout: "请求超时", Unreachable: "不可达"},
	})
	t.Cleanup(p.Close)
	r := NewRegistry()
	RegisterRelayTools(r, p)
	return r, p
}

func exec(t *testing.T, r *Registry, ctx context.Context, name, params string) string {
	t.Helper()
	out, err := r.Execute(ctx, name, json.RawMessage(params))
	require.NoError(t, err)
	return out
}

func TestUseBotAction_RendersEachOutcome(t *testing.T) {
	sender := &fakeSender{}
	r, p := newRegistry(t, sender, 3)
	ctx := WithRunInfo(context.Background(), RunInfo{Channel: "qq", GroupID: 3001, SenderID: 42})

	assert.Equal(t, "", exec(t, r, ctx, "use_bot_action", `{"action_desc":"网络测试"}`))
	require.Len(t, p.Pending(), 1)
	assert.Equal(t, int64(3001), p.Pending()[0].SourceGroup)

	assert.Equal(t, NoticeNotFound, exec(t, r, ctx, "use_bot_action", `{"action_desc":"翻译"}`))
	assert.Equal(t, "不可达", exec(t, r, ctx, "use_bot_action", `{"action_desc":"画图"}`))
	assert.Equal(t, NoticeRateLimited, exec(t, r, ctx, "use_bot_action", `{"action_desc":"网络测试"}`))

	assert.Equal(t, []string{"ping"}, sender.sent)
}

func TestUseBotAction_SendFailureIsSilent(t *testing.T) {
	r, p := newRegistry(t, &fakeSender{err: errors.New("no bridge")}, 5)
	out := exec(t, r, context.Background(), "use_bot_action", `{"action_desc":"网络测试"}`)
	assert.Equal(t, "", out)
	assert.Len(t, p.Pending(), 1, "request waits for its timeout notice")
}

func TestUseBotAction_BadParams(t *testing.T) {
	r, _ := newRegistry(t, &fakeSender{}, 5)
	assert.Contains(t, exec(t, r, context.Background(), "use_bot_action", `{}`), "action_desc is required")
	assert.Contains(t, exec(t, r, context.Background(), "use_bot_action", `not json`), "error")
}

func TestUseBotAction_ClosedRelay(t *testing.T) {
	r, p := newRegistry(t, &fakeSender{}, 5)
	p.Close()
	assert.Contains(t, exec(t, r, context.Background(), "use_bot_action", `{"action_desc":"网络测试"}`), "relay closed")
}

func TestListBotActions(t *testing.T) {
	r, _ := newRegistry(t, &fakeSender{}, 5)
	out := exec(t, r, context.Background(), "list_bot_actions", "")
	assert.Equal(t, "网络测试  bot=1001  groups=2001\n画图  bot=1002  groups=  (@)", out)
}

func TestPendingRequests(t *testing.T) {
	r, _ := newRegistry(t, &fakeSender{}, 5)
	exec(t, r, context.Background(), "use_bot_action", `{"action_desc":"网络测试"}`)
	exec(t, r, context.Background(), "use_bot_action", `{"action_desc":"翻译"}`)
	assert.Equal(t, "pending: 1\nrate: 2/5 per minute", exec(t, r, context.Background(), "pending_requests", `{}`))
}

func TestRegistry_UnknownToolAndDefs(t *testing.T) {
	r, _ := newRegistry(t, &fakeSender{}, 5)
	_, err := r.Execute(context.Background(), "nope", nil)
	assert.ErrorContains(t, err, "unknown tool: nope")

	defs := r.ListToolDefs()
	require.Len(t, defs, 3)
	assert.Equal(t, "list_bot_actions", defs[0].Name)
	assert.Equal(t, "pending_requests", defs[1].Name)
	assert.Equal(t, "use_bot_action", defs[2].Name)
	assert.True(t, json.Valid(defs[2].Parameters))
}

func TestRunInfoFromContext(t *testing.T) {
	_, ok := RunInfoFromContext(context.Background())
	assert.False(t, ok)
	info, ok := RunInfoFromContext(WithRunInfo(context.Background(), RunInfo{GroupID: 7}))
	assert.True(t, ok)
	assert.Equal(t, int64(7), info.GroupID)
}
