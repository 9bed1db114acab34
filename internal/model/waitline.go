package model

import (
	"fmt"
	"math"
)

// LatLon is a geographic point in decimal degrees.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Waitline is the geographic polyline a queue follows, parametrized by arc
// length in meters from its head (the booth stop-line, s=0) to its tail
// (where arriving cars join, s=Length). It is immutable after construction:
// the upstream geographic path loader is out of scope for this engine, which
// only ever consumes an already-decoded polyline.
type Waitline struct {
	points     []LatLon
	cumulative []float64 // cumulative[i] = arc length from points[0] to points[i]
	Length     float64
}

// NewWaitline builds arc-length parametrization over an ordered polyline,
// generalizing the per-stop cumulative-distance table a route loader builds
// for a fixed sequence of stops into a continuous coordinate any car
// position can be projected onto.
func NewWaitline(points []LatLon) (*Waitline, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("waitline: need at least 2 points, got %d", len(points))
	}
	cum := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cum[i] = cum[i-1] + haversineMeters(points[i-1], points[i])
	}
	length := cum[len(cum)-1]
	if length <= 0 {
		return nil, fmt.Errorf("waitline: degenerate polyline, total length %.3fm", length)
	}
	return &Waitline{points: points, cumulative: cum, Length: length}, nil
}

// segmentAt returns the polyline segment index i such that
// cumulative[i] <= s <= cumulative[i+1], clamping s to [0, Length].
func (w *Waitline) segmentAt(s float64) (idx int, t float64) {
	if s < 0 {
		s = 0
	}
	if s > w.Length {
		s = w.Length
	}
	// Linear scan is fine: waitlines are short polylines (tens of vertices),
	// not GPS traces, and this runs once per car per telemetry frame.
	i := 0
	for i < len(w.cumulative)-2 && w.cumulative[i+1] < s {
		i++
	}
	segLen := w.cumulative[i+1] - w.cumulative[i]
	if segLen <= 0 {
		return i, 0
	}
	return i, (s - w.cumulative[i]) / segLen
}

// PointAt returns the geographic position, heading (degrees from true
// north), and path curvature (1/m) at arc length s.
func (w *Waitline) PointAt(s float64) (lat, lon, headingDeg, curvature float64) {
	i, t := w.segmentAt(s)
	a, b := w.points[i], w.points[i+1]
	lat = a.Lat + (b.Lat-a.Lat)*t
	lon = a.Lon + (b.Lon-a.Lon)*t
	headingDeg = bearingDeg(a, b)
	curvature = w.curvatureAt(i)
	return
}

// curvatureAt estimates curvature at segment i via the finite-difference
// heading change between the incoming and outgoing segments, divided by the
// outgoing segment's length. A polyline has no curvature within a segment
// (it is straight); this is the standard estimator for a piecewise-linear
// path, and is what the telemetry synthesizer's yaw-rate model needs.
func (w *Waitline) curvatureAt(i int) float64 {
	if i == 0 || i+1 >= len(w.points) {
		return 0
	}
	h1 := bearingDeg(w.points[i-1], w.points[i])
	h2 := bearingDeg(w.points[i], w.points[i+1])
	dHeading := angleDeltaDeg(h1, h2) * math.Pi / 180
	segLen := haversineMeters(w.points[i], w.points[i+1])
	if segLen <= 0 {
		return 0
	}
	return dHeading / segLen
}

func angleDeltaDeg(a, b float64) float64 {
	d := math.Mod(b-a+540, 360) - 180
	return d
}

// haversineMeters returns great-circle distance between two points in
// meters.
func haversineMeters(a, b LatLon) float64 {
	const earthRadiusM = 6371008.8
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c
}

// bearingDeg returns the initial compass bearing from a to b in [0, 360).
func bearingDeg(a, b LatLon) float64 {
	la1 := a.Lat * math.Pi / 180
	la2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(la2)
	x := math.Cos(la1)*math.Sin(la2) - math.Sin(la1)*math.Cos(la2)*math.Cos(dLon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}
