package tool

import "context"

type contextKey string

const runInfoKey contextKey = "runInfo"

// RunInfo describes the chat event that triggered a tool call.
type RunInfo struct {
	Channel  string
	GroupID  int64 // zero for private chats
	SenderID int64
}

// WithRunInfo attaches RunInfo to ctx. The gateway sets it before executing tools.
func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	return context.WithValue(ctx, runInfoKey, info)
}

// RunInfoFromContext returns RunInfo from ctx if present.
func RunInfoFromContext(ctx context.Context) (RunInfo, bool) {
	info, ok := ctx.Value(runInfoKey).(RunInfo)
	return info, ok
}
