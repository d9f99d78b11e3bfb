package routing

import (
	"fmt"
	"sync"

	"github.com/dauletbeck/freedom/internal/models"
)

// Rotation owns the per-class round-robin counters and the shared
// counter behind the 50/50 hub alternation. One instance lives for the
// duration of a processing run; Reset clears it before the next run.
//
// The mutex makes the read-increment of a class counter atomic, so two
// concurrent requests can never draw the same index for the same class.
type Rotation struct {
	mu       sync.Mutex
	counters map[string]int
	foreign  int
}

func NewRotation() *Rotation {
	return &Rotation{counters: map[string]int{}}
}

func (r *Rotation) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = map[string]int{}
	r.foreign = 0
}

// ClassKey builds the rotation key for an eligibility class. Tickets
// that compete for the same pool of managers must share a key so their
// counter advances together; the key is therefore built from the
// eligibility flags, not from raw ticket values. Languages outside the
// KZ and ENG buckets collapse to the default bucket.
func ClassKey(office string, vip, dataChange bool, language string, senior bool) string {
	if language != LangKZ && language != LangENG {
		language = LangDefault
	}
	return fmt.Sprintf("%s|vip=%t|data=%t|lang=%s|senior=%t", office, vip, dataChange, language, senior)
}

// Assign hands out the next manager for the class round-robin. The
// counter increments by one per call regardless of pool size, so each
// class keeps its own cadence even when the pool shrinks or grows
// between calls. An empty pool returns (nil, 0) and leaves all state
// untouched.
func (r *Rotation) Assign(eligible []models.Manager, key string) (*models.Manager, int) {
	if len(eligible) == 0 {
		return nil, 0
	}

	r.mu.Lock()
	current := r.counters[key]
	r.counters[key] = current + 1
	r.mu.Unlock()

	idx := current % len(eligible)
	return &eligible[idx], idx
}

// NextHub advances the shared alternator used for foreign and
// unresolvable locations and returns its previous value.
func (r *Rotation) NextHub() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.foreign
	r.foreign++
	return idx
}
