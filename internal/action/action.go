// Package action parses remote-bot capability descriptors and serves lookups against them.
package action

import (
	"slices"
	"strings"
	"time"
)

// ReturnModeMention requires the reply to address the local bot.
const ReturnModeMention = "@"

// Action is a capability offered by a remote bot.
type Action struct {
	ID         string        `json:"id"`
	BotID      int64         `json:"botId"`
	Groups     []int64       `json:"groups"`
	Command    string        `json:"command"`
	ReturnMode string        `json:"returnMode"`
	Desc       string        `json:"desc"`
	Timeout    time.Duration `json:"timeout"`
}

// RequiresMention reports whether only replies that @ the local bot count.
func (a Action) RequiresMention() bool {
	return a.ReturnMode == ReturnModeMention
}

// Catalog is an immutable, ordered set of actions.
type Catalog struct {
	actions []Action
}

func NewCatalog(actions []Action) *Catalog {
	return &Catalog{actions: slices.Clone(actions)}
}

// Find returns the first action, in registration order, whose Desc contains desc.
// Matching is a case-sensitive substring test.
func (c *Catalog) Find(desc string) (Action, bool) {
	if c == nil {
		return Action{}, false
	}
	for _, a := range c.actions {
		if strings.Contains(a.Desc, desc) {
			return a, true
		}
	}
	return Action{}, false
}

func (c *Catalog) All() []Action {
	if c == nil {
		return nil
	}
	return slices.Clone(c.actions)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.actions)
}
