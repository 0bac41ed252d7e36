package message

import "strconv"

// InboundMessage is the normalized message event a bridge forwards from the chat host.
// GroupID is zero for private messages.
type InboundMessage struct {
	Channel   string `json:"channel"`
	GroupID   int64  `json:"groupId"`
	SenderID  int64  `json:"senderId"`
	Text      string `json:"text"`
	AtMe      bool   `json:"atMe"` // message addresses the local bot
	MessageID string `json:"messageId,omitempty"`
}

// DedupKey identifies a host message across redeliveries. Empty when the bridge sent no message id.
func (m InboundMessage) DedupKey() string {
	if m.MessageID == "" {
		return ""
	}
	return m.Channel + ":" + strconv.FormatInt(m.GroupID, 10) + ":" + m.MessageID
}

// OutboundMessage is pushed to the bridges of Channel for delivery into a group.
type OutboundMessage struct {
	Channel string `json:"channel"`
	GroupID int64  `json:"groupId"`
	Text    string `json:"text"`
}
