package stats

import (
	"math/rand"
	"time"
)

// Reservoir keeps a fixed-capacity uniform random sample of a stream
// (algorithm R). Once full, each new sample replaces a random slot with
// probability capacity/seen, so the retained set stays uniform over the
// whole stream.
type Reservoir struct {
	capacity int
	seen     int64
	vals     []float64
	rng      *rand.Rand
}

func NewReservoir(capacity int) *Reservoir {
	return &Reservoir{
		capacity: capacity,
		vals:     make([]float64, 0, capacity),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Reservoir) Add(v float64) {
	r.seen++
	if len(r.vals) < r.capacity {
		r.vals = append(r.vals, v)
		return
	}
	if j := r.rng.Int63n(r.seen); j < int64(r.capacity) {
		r.vals[j] = v
	}
}

// Seen returns the number of samples offered to the reservoir.
func (r *Reservoir) Seen() int64 { return r.seen }

// Values returns a copy of the retained samples, unsorted.
func (r *Reservoir) Values() []float64 {
	out := make([]float64, len(r.vals))
	copy(out, r.vals)
	return out
}
