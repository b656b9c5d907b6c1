// File: internal/model/model.go

// Package model defines the contract with the remote decision model. The
// step loop consumes it purely as request(messages) -> {thinking, actionText};
// transport specifics stay behind the Client interface.
package model

import (
	"context"
	"strings"
)

// Role values for conversation messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the accumulated conversation. Screenshot carries
// an optional base64-encoded PNG of the current screen.
type Message struct {
	Role       string `json:"role"`
	Text       string `json:"text"`
	Screenshot string `json:"screenshot,omitempty"`
}

// Reply is the model's decision for one step: its reasoning and the single
// directive to execute.
type Reply struct {
	Thinking   string `json:"thinking"`
	ActionText string `json:"action_text"`
}

// Client requests the next directive from the model.
type Client interface {
	Request(ctx context.Context, messages []Message) (Reply, error)
}

// SplitReply separates free-form reasoning from the trailing directive in a
// raw completion. The directive is the last line that looks like a do(...)
// or finish(...) call; everything before it is thinking. When no such line
// exists the whole content is returned as the action text and the parser
// reports it as unrecognizable.
func SplitReply(content string) Reply {
	trimmed := strings.TrimSpace(content)
	lines := strings.Split(trimmed, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "do(") || strings.HasPrefix(line, "finish(") {
			return Reply{
				Thinking:   strings.TrimSpace(strings.Join(lines[:i], "\n")),
				ActionText: strings.Join(lines[i:], "\n"),
			}
		}
	}
	return Reply{ActionText: trimmed}
}
