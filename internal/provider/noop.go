package provider

import (
	"context"
	"strings"
)

// Noop is the dev-mode fallback: it produces a deterministic extract of the
// input instead of calling any network service.
type Noop struct {
	name string
}

func NewNoop(name string) *Noop {
	if name == "" {
		name = "noop"
	}
	return &Noop{name: name}
}

func (n *Noop) Name() string { return n.name }

func (n *Noop) Invoke(_ context.Context, instruction string, text string) (string, error) {
	first := text
	if idx := strings.IndexByte(first, '\n'); idx > 0 {
		first = first[:idx]
	}
	first = strings.TrimSpace(first)
	if len(first) > 240 {
		first = first[:240] + "..."
	}
	_ = instruction
	return first, nil
}
