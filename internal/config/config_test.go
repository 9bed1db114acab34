package config

import (
	"testing"

	"github.com/gavargas22/cascabel/internal/model"
	"github.com/stretchr/testify/assert"
)

func validBorderConfig() BorderConfig {
	return BorderConfig{
		NumQueues:       2,
		NodesPerQueue:   []int{1, 2},
		ArrivalRate:     3.0,
		ServiceRates:    []float64{2.0, 2.0, 2.0},
		QueueAssignment: AssignShortest,
		SafeDistance:    5.0,
		MaxQueueLength:  50,
	}
}

func TestBorderConfigValidAccepted(t *testing.T) {
	c := validBorderConfig()
	assert.NoError(t, c.Validate())
}

func TestBorderConfigRejectsMismatchedNodeCount(t *testing.T) {
	c := validBorderConfig()
	c.NodesPerQueue = []int{1}
	var verr *ValidationError
	assert.ErrorAs(t, c.Validate(), &verr)
}

func TestBorderConfigRejectsMismatchedRateCount(t *testing.T) {
	c := validBorderConfig()
	c.ServiceRates = []float64{2.0}
	assert.Error(t, c.Validate())
}

func TestBorderConfigRejectsUnknownAssignment(t *testing.T) {
	c := validBorderConfig()
	c.QueueAssignment = "diagonal"
	assert.Error(t, c.Validate())
}

func TestBorderConfigRejectsNonPositiveRate(t *testing.T) {
	c := validBorderConfig()
	c.ServiceRates[0] = 0
	assert.Error(t, c.Validate())
}

func TestBorderConfigDemandProfileOptional(t *testing.T) {
	c := validBorderConfig()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 1.0, c.DemandMultiplierAt(12345))
}

func TestBorderConfigDemandProfileWrongLengthRejected(t *testing.T) {
	c := validBorderConfig()
	c.DemandProfile = []float64{1, 2, 3}
	assert.Error(t, c.Validate())
}

func TestBorderConfigDemandProfileIndexedByHour(t *testing.T) {
	c := validBorderConfig()
	profile := make([]float64, 24)
	for i := range profile {
		profile[i] = float64(i)
	}
	c.DemandProfile = profile
	assert.NoError(t, c.Validate())
	assert.Equal(t, 5.0, c.DemandMultiplierAt(5*3600+100))
	assert.Equal(t, 3.0, c.DemandMultiplierAt((24+3)*3600))
}

func TestSimulationConfigValidation(t *testing.T) {
	c := DefaultSimulationConfig()
	assert.NoError(t, c.Validate())
	c.TimeFactor = 0
	assert.Error(t, c.Validate())
}

func TestValidatePhoneConfig(t *testing.T) {
	p := model.DefaultPhoneConfig()
	assert.NoError(t, ValidatePhoneConfig(&p))
	p.DeviceOrientation = "sideways"
	assert.Error(t, ValidatePhoneConfig(&p))
}
