package sim

import (
	"encoding/json"
	"testing"

	"github.com/gavargas22/cascabel/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTripsThroughJSON(t *testing.T) {
	snap := Snapshot{
		SimulationID: "abc",
		SimTimeS:     12.5,
		Status:       StatusRunning,
		Cars: []CarView{
			{ID: 1, PositionS: 3.2, Velocity: 5.0, Status: model.CarQueued, QueueID: 0},
		},
		Booths: []BoothView{
			{ID: 0, QueueID: 0, IsBusy: true, CurrentCarID: 1, ServiceRate: 20, TotalServed: 4},
		},
		Stats: StatsView{TotalArrivals: 10, TotalCompletions: 4, Dropped: 1},
	}
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var out Snapshot
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, snap, out)
}

func TestBoothViewOmitsCurrentCarIDWhenIdle(t *testing.T) {
	v := BoothView{ID: 0, IsBusy: false}
	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "current_car_id")
}
