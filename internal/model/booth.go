package model

import "time"

// Booth is a service node consuming one car at a time at rate ServiceRate
// (cars/minute). Rate is mutable at any time; mutating it never reschedules
// a completion already in flight -- only the next car accepted feels the
// new rate.
type Booth struct {
	ID              int
	QueueID         int
	ServiceRate     float64 // mu, cars/minute
	IsBusy          bool
	CurrentCarID    int64 // valid iff IsBusy
	AcceptTime      time.Time
	CompletionTime  time.Time
	TotalServed     int64
	TotalServiceSec float64
}

// NewBooth constructs an idle booth for the given queue at the given rate.
func NewBooth(id, queueID int, rate float64) *Booth {
	return &Booth{ID: id, QueueID: queueID, ServiceRate: rate}
}

// Accept begins servicing car carID at sim-time t, drawing a completion time
// exp(mu/60) seconds out using the given draw function (so the caller
// supplies the shared orchestrator RNG rather than this type owning one).
func (b *Booth) Accept(carID int64, t time.Time, drawExpSeconds func(ratePerMinute float64) float64) {
	b.IsBusy = true
	b.CurrentCarID = carID
	b.AcceptTime = t
	b.CompletionTime = t.Add(secondsToDuration(drawExpSeconds(b.ServiceRate)))
}

// Due reports whether the in-flight service has finished by sim clock t.
func (b *Booth) Due(t time.Time) bool {
	return b.IsBusy && !b.CompletionTime.After(t)
}

// Release marks the booth idle and records completion stats. The service
// duration is derived from AcceptTime/CompletionTime rather than passed in,
// so it reflects exactly the draw made at Accept even if ServiceRate has
// since changed.
func (b *Booth) Release() float64 {
	serviceSeconds := b.CompletionTime.Sub(b.AcceptTime).Seconds()
	b.IsBusy = false
	b.CurrentCarID = 0
	b.TotalServed++
	b.TotalServiceSec += serviceSeconds
	return serviceSeconds
}

// MeanServiceSeconds is total_service_time / total_served, or 0 if the
// booth has not completed any car yet.
func (b *Booth) MeanServiceSeconds() float64 {
	if b.TotalServed == 0 {
		return 0
	}
	return b.TotalServiceSec / float64(b.TotalServed)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
