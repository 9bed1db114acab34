package sim

import (
	"testing"
	"time"

	"github.com/gavargas22/cascabel/internal/config"
	"github.com/gavargas22/cascabel/internal/model"
	"github.com/gavargas22/cascabel/internal/rng"
	"github.com/stretchr/testify/assert"
)

func threeQueues(cap int) []*model.Queue {
	return []*model.Queue{
		model.NewQueue(0, cap, []int{0}, nil),
		model.NewQueue(1, cap, []int{1}, nil),
		model.NewQueue(2, cap, []int{2}, nil),
	}
}

func TestAssignerShortestBreaksTiesByLowestID(t *testing.T) {
	a := NewAssigner(config.AssignShortest)
	queues := threeQueues(5)
	assert.Equal(t, 0, a.Choose(queues, rng.New(1)))
}

func TestAssignerShortestPicksLeastLoaded(t *testing.T) {
	a := NewAssigner(config.AssignShortest)
	queues := threeQueues(5)
	queues[0].Admit(model.NewCar(1, time.Now(), model.DefaultPhoneConfig()), 5)
	queues[0].Admit(model.NewCar(2, time.Now(), model.DefaultPhoneConfig()), 5)
	assert.Equal(t, 1, a.Choose(queues, rng.New(1)))
}

func TestAssignerRoundRobinCyclesAndSkipsFull(t *testing.T) {
	a := NewAssigner(config.AssignRoundRobin)
	queues := threeQueues(1)
	queues[1].Admit(model.NewCar(1, time.Now(), model.DefaultPhoneConfig()), 5) // fill queue 1
	first := a.Choose(queues, nil)
	second := a.Choose(queues, nil)
	assert.Equal(t, 0, first)
	assert.Equal(t, 2, second) // queue 1 is full, skipped
}

func TestAssignerRandomReturnsMinusOneWhenAllFull(t *testing.T) {
	a := NewAssigner(config.AssignRandom)
	queues := threeQueues(1)
	for _, q := range queues {
		q.Admit(model.NewCar(1, time.Now(), model.DefaultPhoneConfig()), 5)
	}
	assert.Equal(t, -1, a.Choose(queues, rng.New(1)))
}
