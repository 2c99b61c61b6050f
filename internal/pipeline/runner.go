// Package pipeline turns one document's text into one SummaryResult: chunk,
// assign role tasks, execute them strictly sequentially against routed
// providers, then synthesize the partials into a single summary.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"docrouter/internal/analyze"
	"docrouter/internal/availability"
	"docrouter/internal/provider"
	"docrouter/internal/routing"
)

// RetryPolicy is the per-provider retry budget within one task, expressed as
// data so the executor stays free of inline backoff arithmetic.
type RetryPolicy struct {
	MaxAttempts   int
	RateLimitWait time.Duration
	TransientWait time.Duration
}

// Retryable reports whether the same provider is worth another attempt.
// Quota and auth failures will not clear within a task's lifetime, so the
// chain advances immediately.
func (p RetryPolicy) Retryable(err error) bool {
	switch provider.ClassOf(err) {
	case provider.ClassQuotaExhausted, provider.ClassAuthFailure:
		return false
	default:
		return true
	}
}

// WaitFor returns the pause before retrying the same provider, preferring a
// provider-suggested delay for rate limits.
func (p RetryPolicy) WaitFor(err error) time.Duration {
	switch provider.ClassOf(err) {
	case provider.ClassRateLimited:
		if suggested := provider.RetryAfterOf(err); suggested > 0 {
			return suggested
		}
		return p.RateLimitWait
	default:
		return p.TransientWait
	}
}

// PartialResult is the outcome of one task. Append-only and index-aligned
// with chunk order so synthesis can reconstruct document order.
type PartialResult struct {
	TaskID   string        `json:"task_id"`
	Position int           `json:"position"`
	Role     Role          `json:"role"`
	Provider string        `json:"provider,omitempty"`
	Output   string        `json:"output,omitempty"`
	Err      string        `json:"error,omitempty"`
	Attempts int           `json:"attempts"`
	Elapsed  time.Duration `json:"elapsed"`
}

func (p PartialResult) OK() bool { return p.Err == "" }

// SummaryResult is the terminal artifact of one pipeline run.
type SummaryResult struct {
	RunID    string          `json:"run_id"`
	Summary  string          `json:"summary"`
	Partials []PartialResult `json:"partials"`
	Degraded bool            `json:"degraded"`
	Elapsed  time.Duration   `json:"elapsed"`
}

type Options struct {
	ChunkMaxChars  int
	InterTaskDelay time.Duration
	CallTimeout    time.Duration
	Retry          RetryPolicy
}

type Runner struct {
	engine   *routing.Engine
	avail    *availability.Manager
	invokers map[string]provider.Invoker
	opts     Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(engine *routing.Engine, avail *availability.Manager, invokers map[string]provider.Invoker, opts Options) *Runner {
	if opts.ChunkMaxChars <= 0 {
		opts.ChunkMaxChars = 4000
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 3
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}
	return &Runner{
		engine:   engine,
		avail:    avail,
		invokers: invokers,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepCtx,
	}
}

// Summarize processes one document. Tasks run strictly sequentially with an
// inter-task pacing delay; one chunk's failure never stops the rest. On
// cancellation it returns the partials accumulated so far together with the
// context error. A document-level result is produced in every other case.
func (r *Runner) Summarize(ctx context.Context, text string) (SummaryResult, error) {
	started := r.now()
	result := SummaryResult{RunID: uuid.NewString()}

	chunks, err := SplitChunks(text, r.opts.ChunkMaxChars)
	if err != nil {
		return result, err
	}
	tasks := BuildTasks(chunks)
	log.Printf("run %s: %d chunks", result.RunID, len(tasks))

	for i, task := range tasks {
		if i > 0 {
			if err := r.sleep(ctx, r.opts.InterTaskDelay); err != nil {
				result.Elapsed = r.now().Sub(started)
				result.Degraded = true
				return result, err
			}
		}
		if ctx.Err() != nil {
			result.Elapsed = r.now().Sub(started)
			result.Degraded = true
			return result, ctx.Err()
		}
		partial := r.executeTask(ctx, task)
		result.Partials = append(result.Partials, partial)
		if ctx.Err() != nil {
			result.Elapsed = r.now().Sub(started)
			result.Degraded = true
			return result, ctx.Err()
		}
	}

	r.synthesize(ctx, &result)
	result.Elapsed = r.now().Sub(started)
	return result, nil
}

// executeTask resolves one task fully: routing decision, then providers in
// chain order with a bounded retry budget each, reporting every outcome to
// the availability manager. Chain exhaustion yields a failure marker, never
// an abort.
func (r *Runner) executeTask(ctx context.Context, task Task) PartialResult {
	started := r.now()
	partial := PartialResult{TaskID: task.ID, Position: task.Chunk.Position, Role: task.Role}

	decision, err := r.engine.Decide(task.Chunk.Language, task.Chunk.Complexity)
	if err != nil {
		partial.Err = err.Error()
		partial.Elapsed = r.now().Sub(started)
		log.Printf("task %s (chunk %d): %v", task.ID, task.Chunk.Position, err)
		return partial
	}

	var lastErr error
	for _, name := range decision.Providers {
		inv, ok := r.invokers[name]
		if !ok {
			continue
		}
		for attempt := 1; attempt <= r.opts.Retry.MaxAttempts; attempt++ {
			partial.Attempts++
			output, err := r.invoke(ctx, inv, task.Instruction, task.Chunk.Text)
			if ctx.Err() != nil {
				// Parent cancelled mid-call; not a provider failure.
				partial.Err = ctx.Err().Error()
				partial.Elapsed = r.now().Sub(started)
				return partial
			}
			r.avail.ReportOutcome(name, err)
			if err == nil {
				partial.Provider = name
				partial.Output = output
				partial.Elapsed = r.now().Sub(started)
				return partial
			}
			lastErr = err
			log.Printf("task %s: %s attempt %d failed: %v", task.ID, name, attempt, err)
			if !r.opts.Retry.Retryable(err) {
				break
			}
			if attempt < r.opts.Retry.MaxAttempts {
				if serr := r.sleep(ctx, r.opts.Retry.WaitFor(err)); serr != nil {
					partial.Err = serr.Error()
					partial.Elapsed = r.now().Sub(started)
					return partial
				}
			}
		}
	}

	partial.Err = fmt.Sprintf("all providers failed: %v", lastErr)
	partial.Elapsed = r.now().Sub(started)
	return partial
}

// invoke runs one provider call under the per-call timeout. A deadline hit
// surfaces as an unclassified error and therefore counts as transient.
func (r *Runner) invoke(ctx context.Context, inv provider.Invoker, instruction string, text string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()
	return inv.Invoke(callCtx, instruction, text)
}

// synthesize merges successful partials into the final summary. A single
// successful section is used directly; a failed merge call degrades to the
// labelled concatenation so no partial output is ever lost.
func (r *Runner) synthesize(ctx context.Context, result *SummaryResult) {
	var ok []PartialResult
	for _, p := range result.Partials {
		if p.OK() {
			ok = append(ok, p)
		} else {
			result.Degraded = true
		}
	}

	switch len(ok) {
	case 0:
		result.Degraded = true
		return
	case 1:
		if len(result.Partials) == 1 {
			result.Summary = ok[0].Output
			return
		}
	}

	combined := labelledConcat(ok)
	lang, _ := analyze.Analyze(combined)
	task := Task{
		ID:          uuid.NewString(),
		Chunk:       Chunk{Position: len(result.Partials), Text: combined, Language: lang, Complexity: analyze.High},
		Role:        RoleWhole,
		Instruction: synthesisInstruction,
	}
	partial := r.executeTask(ctx, task)
	if partial.OK() {
		result.Summary = partial.Output
		return
	}
	log.Printf("run %s: synthesis failed, falling back to concatenation: %s", result.RunID, partial.Err)
	result.Summary = combined
	result.Degraded = true
}

func labelledConcat(partials []PartialResult) string {
	var b strings.Builder
	for i, p := range partials {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] Section %d:\n%s", p.Role, p.Position+1, p.Output)
	}
	return b.String()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
