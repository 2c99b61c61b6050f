// Package availability tracks per-provider health from real call outcomes.
// There are no pre-set daily counters: a provider only becomes unusable when
// an actual call failed, and only for the cooldown its failure class earns.
package availability

import (
	"sync"
	"time"

	"docrouter/internal/provider"
)

type Status string

const (
	StatusAvailable   Status = "available"
	StatusCoolingDown Status = "cooling_down"
)

// Cooldowns maps each failure class to the window a provider sits out.
// Quota and auth failures are long cooldowns, not a separate terminal state;
// only ResetAll clears state unconditionally.
type Cooldowns struct {
	RateLimit time.Duration
	Quota     time.Duration
	Auth      time.Duration
	Transient time.Duration
}

// retryAfterBuffer pads a provider-suggested delay so we do not knock on the
// door the instant the window reopens.
const retryAfterBuffer = 10 * time.Second

// state is owned exclusively by the Manager and guarded by its own mutex so
// unrelated providers never serialize on each other.
type state struct {
	mu            sync.Mutex
	cooldownUntil time.Time
	lastClass     provider.Class
	lastErr       string
	calls         int
	successes     int
}

type Manager struct {
	now       func() time.Time
	cooldowns Cooldowns
	states    map[string]*state // keys fixed at construction
}

func NewManager(names []string, cd Cooldowns) *Manager {
	states := make(map[string]*state, len(names))
	for _, name := range names {
		states[name] = &state{}
	}
	return &Manager{
		now:       func() time.Time { return time.Now().UTC() },
		cooldowns: cd,
		states:    states,
	}
}

// ReportOutcome records one call outcome for a provider. A nil err marks the
// provider available and clears any cooldown. A failure starts a cooldown
// sized by its classification. Replaying the same classified failure while
// its cooldown is still pending does not extend the deadline.
func (m *Manager) ReportOutcome(name string, err error) {
	st, ok := m.states[name]
	if !ok {
		return
	}
	now := m.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.calls++
	if err == nil {
		st.successes++
		st.cooldownUntil = time.Time{}
		st.lastClass = ""
		st.lastErr = ""
		return
	}

	class := provider.ClassOf(err)
	st.lastErr = err.Error()

	if st.lastClass == class && st.cooldownUntil.After(now) {
		// Same failure replayed while cooling down: keep the deadline.
		return
	}
	st.lastClass = class
	st.cooldownUntil = now.Add(m.cooldownFor(class, err))
}

func (m *Manager) cooldownFor(class provider.Class, err error) time.Duration {
	switch class {
	case provider.ClassRateLimited:
		if suggested := provider.RetryAfterOf(err); suggested > 0 {
			return suggested + retryAfterBuffer
		}
		return m.cooldowns.RateLimit
	case provider.ClassQuotaExhausted:
		return m.cooldowns.Quota
	case provider.ClassAuthFailure:
		return m.cooldowns.Auth
	default:
		return m.cooldowns.Transient
	}
}

// Usable filters names to providers not in an unexpired cooldown, preserving
// input order. Expiry is observed lazily here; no transition call is needed.
func (m *Manager) Usable(names []string) []string {
	now := m.now()
	out := make([]string, 0, len(names))
	for _, name := range names {
		st, ok := m.states[name]
		if !ok {
			continue
		}
		st.mu.Lock()
		usable := !st.cooldownUntil.After(now)
		st.mu.Unlock()
		if usable {
			out = append(out, name)
		}
	}
	return out
}

// ResetAll clears every cooldown unconditionally. Operator escape hatch;
// never invoked automatically.
func (m *Manager) ResetAll() {
	for _, st := range m.states {
		st.mu.Lock()
		st.cooldownUntil = time.Time{}
		st.lastClass = ""
		st.lastErr = ""
		st.mu.Unlock()
	}
}

// ProviderStatus is a point-in-time view of one provider for introspection.
type ProviderStatus struct {
	Name              string         `json:"name"`
	Status            Status         `json:"status"`
	CooldownRemaining time.Duration  `json:"cooldown_remaining"`
	LastClass         provider.Class `json:"last_class,omitempty"`
	LastError         string         `json:"last_error,omitempty"`
	Calls             int            `json:"calls"`
	Successes         int            `json:"successes"`
}

func (m *Manager) Snapshot(names []string) []ProviderStatus {
	now := m.now()
	out := make([]ProviderStatus, 0, len(names))
	for _, name := range names {
		st, ok := m.states[name]
		if !ok {
			continue
		}
		st.mu.Lock()
		ps := ProviderStatus{
			Name:      name,
			Status:    StatusAvailable,
			LastClass: st.lastClass,
			LastError: st.lastErr,
			Calls:     st.calls,
			Successes: st.successes,
		}
		if st.cooldownUntil.After(now) {
			ps.Status = StatusCoolingDown
			ps.CooldownRemaining = st.cooldownUntil.Sub(now)
		}
		st.mu.Unlock()
		out = append(out, ps)
	}
	return out
}
