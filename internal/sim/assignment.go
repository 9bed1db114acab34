package sim

import (
	"github.com/gavargas22/cascabel/internal/config"
	"github.com/gavargas22/cascabel/internal/model"
	"github.com/gavargas22/cascabel/internal/rng"
)

// Assigner picks a queue for each arriving car. All three variants are
// either stateless or hold a single integer, so behavior stays deterministic
// under a fixed seed -- random draws come from the orchestrator's shared
// stream, never a private one.
type Assigner struct {
	Policy   config.AssignmentPolicy
	rrCursor int
}

// NewAssigner builds an assigner for the given policy.
func NewAssigner(policy config.AssignmentPolicy) *Assigner {
	return &Assigner{Policy: policy}
}

// Choose returns the index into queues of the queue an arriving car should
// join, or -1 if every queue is full.
func (a *Assigner) Choose(queues []*model.Queue, stream *rng.Stream) int {
	switch a.Policy {
	case config.AssignShortest:
		return a.chooseShortest(queues)
	case config.AssignRoundRobin:
		return a.chooseRoundRobin(queues)
	default:
		return a.chooseRandom(queues, stream)
	}
}

func (a *Assigner) chooseRandom(queues []*model.Queue, stream *rng.Stream) int {
	candidates := make([]int, 0, len(queues))
	for i, q := range queues {
		if q.HasCapacity() {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[stream.UniformN(len(candidates))]
}

func (a *Assigner) chooseShortest(queues []*model.Queue) int {
	best := -1
	bestLen := -1
	for i, q := range queues {
		if !q.HasCapacity() {
			continue
		}
		if best == -1 || q.Len() < bestLen {
			best = i
			bestLen = q.Len()
		}
		// Ties break by lowest queue_id, which is exactly iteration order
		// here since queues are indexed by id.
	}
	return best
}

func (a *Assigner) chooseRoundRobin(queues []*model.Queue) int {
	n := len(queues)
	if n == 0 {
		return -1
	}
	for i := 0; i < n; i++ {
		idx := (a.rrCursor + i) % n
		if queues[idx].HasCapacity() {
			a.rrCursor = (idx + 1) % n
			return idx
		}
	}
	return -1
}
