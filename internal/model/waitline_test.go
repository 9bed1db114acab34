package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWaitlineRejectsTooFewPoints(t *testing.T) {
	_, err := NewWaitline([]LatLon{{Lat: 1, Lon: 1}})
	assert.Error(t, err)
}

func TestPointAtEndpointsMatchPolyline(t *testing.T) {
	w, err := NewWaitline([]LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}})
	assert.NoError(t, err)
	lat, lon, _, _ := w.PointAt(0)
	assert.InDelta(t, 0, lat, 1e-9)
	assert.InDelta(t, 0, lon, 1e-9)
	lat, lon, _, _ = w.PointAt(w.Length)
	assert.InDelta(t, 0, lat, 1e-9)
	assert.InDelta(t, 1, lon, 1e-9)
}

func TestPointAtClampsOutOfRange(t *testing.T) {
	w, _ := NewWaitline([]LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}})
	lat1, lon1, _, _ := w.PointAt(-100)
	lat2, lon2, _, _ := w.PointAt(0)
	assert.Equal(t, lat1, lat2)
	assert.Equal(t, lon1, lon2)

	lat3, lon3, _, _ := w.PointAt(w.Length + 1000)
	lat4, lon4, _, _ := w.PointAt(w.Length)
	assert.Equal(t, lat3, lat4)
	assert.Equal(t, lon3, lon4)
}

func TestCurvatureZeroOnStraightLine(t *testing.T) {
	w, _ := NewWaitline([]LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 0, Lon: 2}})
	_, _, _, curv := w.PointAt(w.Length / 2)
	assert.InDelta(t, 0, curv, 1e-6)
}
