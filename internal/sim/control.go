package sim

import "github.com/gavargas22/cascabel/internal/model"

// ControlOp is a typed mutation accepted from outside the orchestrator.
// Every field the orchestrator's state can be mutated through arrives as
// one of these, deposited into a FIFO and applied only at the next tick
// boundary -- never mutated directly by the caller's goroutine. Result, if
// non-nil, is closed by the orchestrator after the op is applied so a
// synchronous caller (an HTTP handler) can wait for the effect.
type ControlOp struct {
	Kind   ControlKind
	Result chan ControlResult

	// Populated depending on Kind.
	Phone         *model.PhoneConfig // AddCar
	NodeID        int                // UpdateBoothRate
	Rate          float64            // UpdateBoothRate
	QueueID       int                // AddBooth (target queue)
	TimeFactor    float64            // SetTimeFactor
	AdvanceSimSec float64            // Advance
}

// ControlKind enumerates the operations the control surface accepts.
type ControlKind int

const (
	OpAddCar ControlKind = iota
	OpUpdateBoothRate
	OpAddBooth
	OpSetTimeFactor
	OpCancel
	OpAdvance
)

// ControlResult reports the outcome of applying one ControlOp.
type ControlResult struct {
	Err           error
	CarID         int64
	QueueID       int
	BoothID       int
	ServiceRate   float64 // AddBooth: the rate the new booth was created with
	CompletedCars int64   // Advance: completions that occurred during this call
	CurrentTimeS  float64 // Advance: sim_time_s after the call completed
}
