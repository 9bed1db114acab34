package sim

import (
	"context"
	"testing"
	"time"

	"github.com/gavargas22/cascabel/internal/config"
	"github.com/gavargas22/cascabel/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWaitline(t *testing.T) *model.Waitline {
	t.Helper()
	wl, err := model.NewWaitline([]model.LatLon{
		{Lat: 31.75, Lon: -106.49},
		{Lat: 31.76, Lon: -106.48},
	})
	require.NoError(t, err)
	return wl
}

func testOptions(t *testing.T) Options {
	return Options{
		Border: config.BorderConfig{
			NumQueues:       2,
			NodesPerQueue:   []int{1, 1},
			ArrivalRate:     30,
			ServiceRates:    []float64{20, 20},
			QueueAssignment: config.AssignShortest,
			SafeDistance:    5,
			MaxQueueLength:  3,
		},
		Simulation: config.SimulationConfig{
			MaxSimulationTime: 120,
			TimeFactor:        1,
			EnableTelemetry:   true,
		},
		Waitlines: []*model.Waitline{testWaitline(t), testWaitline(t)},
		Seed:      42,
	}
}

func TestNewRejectsInvalidBorderConfig(t *testing.T) {
	opt := testOptions(t)
	opt.Border.ArrivalRate = -1
	_, err := New(opt)
	assert.Error(t, err)
}

func TestNewRejectsWaitlineCountMismatch(t *testing.T) {
	opt := testOptions(t)
	opt.Waitlines = opt.Waitlines[:1]
	_, err := New(opt)
	assert.Error(t, err)
}

func TestAddCarAdmitsIntoShortestQueue(t *testing.T) {
	o, err := New(testOptions(t))
	require.NoError(t, err)
	id, qid, err := o.addCar(nil)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, 0, qid)
	assert.Equal(t, int64(1), o.stats.TotalArrivals)
}

func TestAddCarDropsWhenAllQueuesFull(t *testing.T) {
	opt := testOptions(t)
	opt.Border.MaxQueueLength = 1
	o, err := New(opt)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, _, err := o.addCar(nil)
		require.NoError(t, err)
	}
	_, _, err = o.addCar(nil)
	assert.Error(t, err)
	assert.Equal(t, int64(1), o.stats.Dropped)
	assert.Equal(t, int64(3), o.stats.TotalArrivals)
}

func TestUpdateBoothRateRejectsUnknownBooth(t *testing.T) {
	o, err := New(testOptions(t))
	require.NoError(t, err)
	assert.Error(t, o.updateBoothRate(99, 10))
	assert.NoError(t, o.updateBoothRate(0, 10))
	assert.Equal(t, 10.0, o.booths[0].ServiceRate)
}

func TestAddBoothGrowsQueuePool(t *testing.T) {
	o, err := New(testOptions(t))
	require.NoError(t, err)
	before := len(o.booths)
	id, _, err := o.addBooth(0)
	require.NoError(t, err)
	assert.Equal(t, before, id)
	assert.Len(t, o.booths, before+1)
	assert.Contains(t, o.queues[0].BoothIDs, id)
}

func TestAdvanceSyncConsumesExactSimTime(t *testing.T) {
	o, err := New(testOptions(t))
	require.NoError(t, err)
	require.NoError(t, o.advanceSync(5.0))
	assert.InDelta(t, 5.0, o.simTimeS, 1e-9)
}

func TestTickAdmitsFrontCarIntoIdleBooth(t *testing.T) {
	o, err := New(testOptions(t))
	require.NoError(t, err)
	_, _, err = o.addCar(nil)
	require.NoError(t, err)
	require.NoError(t, o.advanceSync(60.0))
	assert.True(t, o.booths[0].IsBusy || o.stats.TotalCompletions > 0)
}

func TestCarNeverPassesStopLineWithoutBusyBooth(t *testing.T) {
	opt := testOptions(t)
	opt.Border.ServiceRates = []float64{0.001, 0.001} // near-zero service rate: booth stays busy
	o, err := New(opt)
	require.NoError(t, err)
	_, _, err = o.addCar(nil)
	require.NoError(t, err)
	require.NoError(t, o.advanceSync(10.0))
	for _, q := range o.queues {
		for _, c := range q.Cars {
			assert.GreaterOrEqual(t, c.PositionS, 0.0)
		}
	}
}

func TestConservationHoldsAcrossRun(t *testing.T) {
	o, err := New(testOptions(t))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, _, _ = o.addCar(nil)
	}
	require.NoError(t, o.advanceSync(600.0))
	inSystem := int64(0)
	for _, q := range o.queues {
		inSystem += int64(q.Len())
	}
	for _, b := range o.booths {
		if b.IsBusy {
			inSystem++
		}
	}
	assert.Equal(t, o.stats.TotalArrivals, o.stats.TotalCompletions+o.stats.Dropped+inSystem)
}

func TestRunTransitionsToCompletedAtMaxSimTime(t *testing.T) {
	opt := testOptions(t)
	opt.Simulation.MaxSimulationTime = 0.2
	opt.Simulation.TimeFactor = 50
	o, err := New(opt)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o.Run(ctx)
	assert.Equal(t, StatusCompleted, o.Status)
}

func TestRunHonorsCancellation(t *testing.T) {
	opt := testOptions(t)
	opt.Simulation.MaxSimulationTime = 3600
	o, err := New(opt)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestSubmitRejectedAfterTerminal(t *testing.T) {
	o, err := New(testOptions(t))
	require.NoError(t, err)
	o.setStatus(StatusCompleted)
	err = o.Submit(ControlOp{Kind: OpAddCar})
	assert.Error(t, err)
}
