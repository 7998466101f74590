// Package resource implements the slot-counting and CPU/memory gating
// that keeps the pipeline from oversubscribing external services or the
// host machine. It generalizes the teacher's hand-rolled channel
// semaphores (uploadSem/geminiSem/ttsSem/xaiSem/renderSem in worker.go)
// into a named, configurable governor shared across slot kinds.
package resource

import (
	"context"
	"fmt"
	"log"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/semaphore"
)

// Kind names a pool of slots the governor tracks independently.
type Kind string

const (
	KindJob    Kind = "job"
	KindTTS    Kind = "tts"
	KindVisual Kind = "visual"
)

// ErrExhausted is returned when a slot cannot be acquired before the
// caller's context is done.
type ErrExhausted struct {
	Kind Kind
}

func (e *ErrExhausted) Error() string {
	return fmt.Sprintf("resource: %s slots exhausted", e.Kind)
}

// Ceilings configures the soft CPU/memory limits above which the
// governor triggers a cleanup callback before granting a job slot. TTS
// and visual slots are granted without a CPU/memory check.
type Ceilings struct {
	CPUPercent float64
	MemPercent float64
}

// CleanupFunc is invoked when host load is above ceiling; typically wired
// to the cache layer's eviction routine.
type CleanupFunc func(ctx context.Context)

// Governor owns one weighted semaphore per Kind plus the soft ceiling
// check used before granting job slots.
type Governor struct {
	sems     map[Kind]*semaphore.Weighted
	ceilings Ceilings
	cleanup  CleanupFunc
}

// New builds a Governor with the given per-kind slot counts.
func New(jobSlots, ttsSlots, visualSlots int, ceilings Ceilings, cleanup CleanupFunc) *Governor {
	return &Governor{
		sems: map[Kind]*semaphore.Weighted{
			KindJob:    semaphore.NewWeighted(int64(jobSlots)),
			KindTTS:    semaphore.NewWeighted(int64(ttsSlots)),
			KindVisual: semaphore.NewWeighted(int64(visualSlots)),
		},
		ceilings: ceilings,
		cleanup:  cleanup,
	}
}

// Acquire blocks until a slot of the given kind is free or ctx is done.
// For KindJob it additionally checks the CPU/memory soft ceiling and
// runs the configured cleanup callback once before granting the slot.
func (g *Governor) Acquire(ctx context.Context, kind Kind) (release func(), err error) {
	sem, ok := g.sems[kind]
	if !ok {
		return nil, fmt.Errorf("resource: unknown kind %q", kind)
	}

	if kind == KindJob {
		g.maybeCleanup(ctx)
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, &ErrExhausted{Kind: kind}
	}
	return func() { sem.Release(1) }, nil
}

// TryAcquire attempts to acquire without blocking, returning false if no
// slot is immediately available.
func (g *Governor) TryAcquire(kind Kind) (release func(), ok bool) {
	sem, exists := g.sems[kind]
	if !exists {
		return nil, false
	}
	if !sem.TryAcquire(1) {
		return nil, false
	}
	return func() { sem.Release(1) }, true
}

// maybeCleanup samples CPU/mem and runs the cleanup hook once if either
// is above its configured ceiling.
func (g *Governor) maybeCleanup(ctx context.Context) {
	if g.cleanup == nil {
		return
	}
	above, err := g.aboveCeiling(ctx)
	if err != nil {
		log.Printf("resource: ceiling check failed: %v", err)
		return
	}
	if above {
		g.cleanup(ctx)
	}
}

func (g *Governor) aboveCeiling(ctx context.Context) (bool, error) {
	if g.ceilings.CPUPercent > 0 {
		percents, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			return false, err
		}
		if len(percents) > 0 && percents[0] >= g.ceilings.CPUPercent {
			return true, nil
		}
	}
	if g.ceilings.MemPercent > 0 {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return false, err
		}
		if vm.UsedPercent >= g.ceilings.MemPercent {
			return true, nil
		}
	}
	return false, nil
}
