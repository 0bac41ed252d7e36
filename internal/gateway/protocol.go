package gateway

import "encoding/json"

// Frame is the universal WebSocket message format.
// Three types: "req" (peer→gateway), "res" (gateway→peer), "event" (gateway→peer push).
type Frame struct {
	Type    string          `json:"type"`              // "req" | "res" | "event"
	ID      string          `json:"id,omitempty"`      // request/response correlation ID
	Method  string          `json:"method,omitempty"`  // for req: method name
	Params  json.RawMessage `json:"params,omitempty"`  // for req: method parameters
	OK      *bool           `json:"ok,omitempty"`      // for res: success flag
	Payload json.RawMessage `json:"payload,omitempty"` // for res/event: data
	Error   *ErrorPayload   `json:"error,omitempty"`   // for res: error details
	Event   string          `json:"event,omitempty"`   // for event: event name
	Seq     int64           `json:"seq,omitempty"`     // for event: sequence number
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Connection roles
const (
	RoleBridge = "bridge"
	RoleClient = "client"
)

// Methods accepted over WebSocket.
const (
	MethodConnect        = "connect"
	MethodInboundMessage = "inbound.message"
	MethodToolExecute    = "tool.execute"
)

// Events pushed over WebSocket.
const (
	EventOutboundMessage = "outbound.message" // to bridges: deliver text into a group
	EventRelay           = "relay"            // to clients: request lifecycle
)

// ConnectParams is sent by the peer during handshake.
// Bridge: role, token, channel, selfId. Client: role, token only.
type ConnectParams struct {
	Role    string `json:"role"`              // "bridge" | "client"
	Token   string `json:"token"`             // auth token
	Channel string `json:"channel,omitempty"` // bridge only: channel name
	SelfID  int64  `json:"selfId,omitempty"`  // bridge only: the host bot's own account
}

// InboundMessageParams carries one host message event from a bridge.
// Channel defaults to the bridge's own channel.
type InboundMessageParams struct {
	Channel   string `json:"channel,omitempty"`
	GroupID   int64  `json:"groupId"`
	SenderID  int64  `json:"senderId"`
	Text      string `json:"text"`
	AtMe      bool   `json:"atMe"`
	MessageID string `json:"messageId,omitempty"`
}

// ToolExecuteParams is a tool call from the host's LLM layer, made on behalf of a chat event.
type ToolExecuteParams struct {
	Name     string          `json:"name"`
	Params   json.RawMessage `json:"params"`
	GroupID  int64           `json:"groupId"`
	SenderID int64           `json:"senderId,omitempty"`
}

// InvokeParams is the body of POST /api/invoke.
type InvokeParams struct {
	Desc        string `json:"desc"`
	SourceGroup int64  `json:"sourceGroup"`
}

// Helper to create response frames

func ResOK(id string, payload any) Frame {
	data, _ := json.Marshal(payload)
	ok := true
	return Frame{Type: "res", ID: id, OK: &ok, Payload: data}
}

func ResErr(id string, code, message string) Frame {
	ok := false
	return Frame{Type: "res", ID: id, OK: &ok, Error: &ErrorPayload{Code: code, Message: message}}
}

func EventFrame(event string, seq int64, payload any) Frame {
	data, _ := json.Marshal(payload)
	return Frame{Type: "event", Event: event, Seq: seq, Payload: data}
}
