package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/fleetscore-backend/internal/data/aggregates"
)

// HooksRecorder keeps every signal a ledger write emits, keyed by operation name
// (for example "Scoring.ScoreLedger.ApplyCustomRule").
type HooksRecorder struct {
	mu        sync.Mutex
	statuses  map[string][]string
	conflicts map[string]int
	retries   map[string]int
	elapsed   time.Duration
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.statuses == nil {
		h.statuses = map[string][]string{}
	}
	h.statuses[name] = append(h.statuses[name], status)
	h.elapsed += dur
}

func (h *HooksRecorder) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conflicts == nil {
		h.conflicts = map[string]int{}
	}
	h.conflicts[name]++
}

func (h *HooksRecorder) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retries == nil {
		h.retries = map[string]int{}
	}
	h.retries[name]++
}

// Statuses returns the final status of each completed call of op, oldest first.
func (h *HooksRecorder) Statuses(op string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.statuses[op]...)
}

// LastStatus is "" when op never completed.
func (h *HooksRecorder) LastStatus(op string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.statuses[op]
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

func (h *HooksRecorder) Conflicts(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conflicts[op]
}

func (h *HooksRecorder) Retries(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.retries[op]
}

// Completed counts finished operations across all names.
func (h *HooksRecorder) Completed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, s := range h.statuses {
		n += len(s)
	}
	return n
}
