// Package routing turns a task's language class and complexity into an
// ordered fallback chain of usable providers.
package routing

import (
	"errors"
	"sort"

	"docrouter/internal/analyze"
	"docrouter/internal/availability"
	"docrouter/internal/config"
)

var (
	// ErrLanguageUnsupported: an Indic chunk with no usable Indic-capable
	// provider. The task must fail rather than fall back to a provider that
	// would mangle the script.
	ErrLanguageUnsupported = errors.New("no usable provider supports this script")
	// ErrNoProviderAvailable: the candidate set intersected with availability
	// is empty. Terminal for the task; there is nothing to retry against.
	ErrNoProviderAvailable = errors.New("no provider currently available")
)

// Decision is the fallback chain for one task. Head is the primary choice.
type Decision struct {
	Providers []string
}

type Engine struct {
	providers []config.ProviderConfig // priority order
	avail     *availability.Manager
}

func NewEngine(providers []config.ProviderConfig, avail *availability.Manager) *Engine {
	sorted := make([]config.ProviderConfig, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Engine{providers: sorted, avail: avail}
}

// Decide builds the fallback chain for a task. Indic chunks are restricted to
// Indic-capable providers (hard constraint). High-complexity non-Indic chunks
// get Indic-capable providers boosted to the front, since those are
// configured as the strongest general backends; the rest of the chain keeps
// plain priority order. Consults availability but never mutates it.
func (e *Engine) Decide(lang analyze.LanguageClass, cx analyze.Complexity) (Decision, error) {
	var candidates []string

	switch {
	case lang.Indic():
		for _, p := range e.providers {
			if p.SupportsIndic {
				candidates = append(candidates, p.Name)
			}
		}
		usable := e.avail.Usable(candidates)
		if len(usable) == 0 {
			return Decision{}, ErrLanguageUnsupported
		}
		return Decision{Providers: usable}, nil

	case cx == analyze.High:
		for _, p := range e.providers {
			if p.SupportsIndic {
				candidates = append(candidates, p.Name)
			}
		}
		for _, p := range e.providers {
			if !p.SupportsIndic {
				candidates = append(candidates, p.Name)
			}
		}

	default:
		for _, p := range e.providers {
			candidates = append(candidates, p.Name)
		}
	}

	usable := e.avail.Usable(candidates)
	if len(usable) == 0 {
		return Decision{}, ErrNoProviderAvailable
	}
	return Decision{Providers: usable}, nil
}

// Names returns all configured provider names in priority order.
func (e *Engine) Names() []string {
	out := make([]string, len(e.providers))
	for i, p := range e.providers {
		out[i] = p.Name
	}
	return out
}
