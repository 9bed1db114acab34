package sim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gavargas22/cascabel/internal/config"
	"github.com/gavargas22/cascabel/internal/model"
	"github.com/gavargas22/cascabel/internal/rng"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// maxTickSliceSeconds bounds one iteration's sim-time advance so a
	// stalled process (GC pause, scheduler starvation) cannot produce one
	// enormous, physically nonsensical Δt on resume.
	maxTickSliceSeconds = 1.0
	tickInterval        = 50 * time.Millisecond
	defaultPublishEvery = 1 * time.Second
	// advanceSubStepSeconds is the fixed sim-time step used by the
	// synchronous "advance" test hook, independent of wall clock.
	advanceSubStepSeconds = 0.05
)

// Sentinel errors the httpapi layer maps to HTTP status codes with
// errors.Is, rather than pattern-matching error strings.
var (
	ErrTerminal = errors.New("simulation is terminal")
	ErrNotFound = errors.New("not found")
	ErrFull     = errors.New("all queues full")
)

// Publisher is the observer plane's publish side, as seen by the
// orchestrator. Defined here (not in package observer) so this package
// never has to import observer -- accept an interface, keep the dependency
// arrow pointing one way.
type Publisher interface {
	Publish(Snapshot)
	CloseAll()
}

// TelemetrySink is the CSV archive's write side, as seen by the
// orchestrator.
type TelemetrySink interface {
	WriteFrame(SensorFrame) error
	Finalize() error
}

// Orchestrator owns one simulation's state exclusively. Every other
// goroutine in the process only ever reads published snapshots or deposits
// control ops into its FIFO; nothing else mutates a Car, Queue or Booth
// directly.
type Orchestrator struct {
	ID     string
	Status Status // mutated only by the orchestrator's own goroutine

	// statusValue mirrors Status for cross-goroutine reads (Submit, and the
	// httpapi layer's status endpoint) that must not touch Status directly.
	statusValue atomic.Value

	border config.BorderConfig
	simCfg config.SimulationConfig

	queues []*model.Queue
	booths []*model.Booth
	cars   map[int64]*model.Car

	nextCarID int64
	simTimeS  float64

	stream    *rng.Stream
	arrival   *ArrivalSource
	assigner  *Assigner
	telemetry *Telemetry
	stats     model.Stats

	timeFactor float64

	// defaultPhone is the phone profile a spawned car gets when neither the
	// simulation's own phone_config nor a per-add_car override supplies one.
	defaultPhone model.PhoneConfig

	// simClock is a virtual wall clock that advances by exactly dt on every
	// tick, regardless of how time_factor or batch-mode advance scaled that
	// dt against the real wall clock. Every timestamp a car or booth carries
	// (spawn, service start, completion) is stamped from this clock rather
	// than time.Now, so wait and service durations measure simulated
	// seconds even when running far faster or slower than real time.
	simClock time.Time

	controlCh   chan ControlOp
	publisher   Publisher
	sink        TelemetrySink
	log         *logrus.Entry
	lastPublish time.Time
	failure     error
}

// Options bundles the inputs New needs beyond config: the waitlines each
// queue travels along, the observer plane's publish and archive sinks, and
// an optional seed (0 makes New pick a fresh one from the wall clock).
type Options struct {
	Border     config.BorderConfig
	Simulation config.SimulationConfig
	Waitlines  []*model.Waitline // one per queue, indexed by queue id
	Seed       int64
	Publisher  Publisher
	Sink       TelemetrySink
	// DefaultPhone is the phone_config a caller supplied at simulation
	// creation, applied to every spawned car unless a per-add_car request
	// overrides it. Nil falls back to model.DefaultPhoneConfig().
	DefaultPhone *model.PhoneConfig
}

// New constructs an orchestrator in the Running state with its queues and
// booths built from Options.Border, but performs no I/O and starts no
// goroutine -- call Run to actually drive the tick loop.
func New(opt Options) (*Orchestrator, error) {
	if err := opt.Border.Validate(); err != nil {
		return nil, err
	}
	if err := opt.Simulation.Validate(); err != nil {
		return nil, err
	}
	if len(opt.Waitlines) != opt.Border.NumQueues {
		return nil, fmt.Errorf("orchestrator: need %d waitlines, got %d", opt.Border.NumQueues, len(opt.Waitlines))
	}

	id := uuid.NewString()
	seed := opt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	stream := rng.New(seed)

	o := &Orchestrator{
		ID:           id,
		Status:       StatusRunning,
		border:       opt.Border,
		simCfg:       opt.Simulation,
		cars:         make(map[int64]*model.Car),
		stream:       stream,
		assigner:     NewAssigner(opt.Border.QueueAssignment),
		telemetry:    NewTelemetry(),
		timeFactor:   opt.Simulation.TimeFactor,
		controlCh:    make(chan ControlOp, 64),
		publisher:    opt.Publisher,
		sink:         opt.Sink,
		simClock:     time.Now(),
		defaultPhone: model.DefaultPhoneConfig(),
		log:          logrus.WithFields(logrus.Fields{"simulation_id": id, "seed": seed}),
	}
	if opt.DefaultPhone != nil {
		o.defaultPhone = *opt.DefaultPhone
	}
	o.statusValue.Store(StatusRunning)
	o.stats.StartedAt = 0
	o.arrival = NewArrivalSource(&o.border, stream)

	nodeID := 0
	for qID := 0; qID < opt.Border.NumQueues; qID++ {
		var boothIDs []int
		for i := 0; i < opt.Border.NodesPerQueue[qID]; i++ {
			b := model.NewBooth(nodeID, qID, opt.Border.ServiceRates[nodeID])
			o.booths = append(o.booths, b)
			boothIDs = append(boothIDs, nodeID)
			nodeID++
		}
		o.queues = append(o.queues, model.NewQueue(qID, opt.Border.MaxQueueLength, boothIDs, opt.Waitlines[qID]))
	}
	return o, nil
}

// CurrentStatus is safe to call from any goroutine, unlike reading Status
// directly. The httpapi layer and Submit use this; the orchestrator's own
// tick loop uses Status directly since it is that field's sole writer.
func (o *Orchestrator) CurrentStatus() Status {
	v := o.statusValue.Load()
	if v == nil {
		return StatusRunning
	}
	return v.(Status)
}

func (o *Orchestrator) setStatus(s Status) {
	o.Status = s
	o.statusValue.Store(s)
}

// Submit deposits one control op into the FIFO for the orchestrator to pick
// up at the next tick boundary. It never mutates simulation state itself.
// Submitting to a terminal simulation is rejected immediately, matching the
// control surface's idempotency rule.
func (o *Orchestrator) Submit(op ControlOp) error {
	if status := o.CurrentStatus(); status != StatusRunning {
		return fmt.Errorf("simulation %s is %s: %w", o.ID, status, ErrTerminal)
	}
	select {
	case o.controlCh <- op:
		return nil
	default:
		return fmt.Errorf("simulation %s: control queue full", o.ID)
	}
}

// Run drives the tick loop until the context is cancelled or the
// simulation reaches a terminal state. It is the exclusive writer of
// simulation state for its entire lifetime.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	wallLast := time.Now()
	o.lastPublish = wallLast

	defer o.finish()

	for {
		select {
		case <-ctx.Done():
			o.setStatus(StatusCancelled)
			return
		case now := <-ticker.C:
			o.drainControlOps()
			if o.Status != StatusRunning {
				return
			}
			dt := now.Sub(wallLast).Seconds() * o.timeFactor
			wallLast = now
			if dt > maxTickSliceSeconds {
				dt = maxTickSliceSeconds
			}
			if dt <= 0 {
				continue
			}
			if err := o.tick(dt); err != nil {
				o.log.WithError(err).Error("tick failed, marking simulation failed")
				o.setStatus(StatusFailed)
				o.failure = err
				return
			}
			if o.simTimeS >= o.simCfg.MaxSimulationTime {
				o.setStatus(StatusCompleted)
				return
			}
			if now.Sub(o.lastPublish) >= defaultPublishEvery {
				o.publish()
				o.lastPublish = now
			}
		}
	}
}

// finish publishes a final snapshot and closes the observer plane,
// regardless of which terminal state was reached.
func (o *Orchestrator) finish() {
	o.publish()
	if o.publisher != nil {
		o.publisher.CloseAll()
	}
	if o.sink != nil {
		if err := o.sink.Finalize(); err != nil {
			o.log.WithError(err).Warn("failed to finalize telemetry csv")
		}
	}
	o.log.WithFields(logrus.Fields{
		"status":        o.Status,
		"sim_time_s":    o.simTimeS,
		"completions":   o.stats.TotalCompletions,
		"dropped":       o.stats.Dropped,
		"total_arrival": o.stats.TotalArrivals,
	}).Info("simulation terminal")
}

// drainControlOps applies every pending op, in FIFO order, before the next
// tick advances state -- this is the only place outside New that mutates
// orchestrator-owned entities in response to something other than the
// physics/service model itself.
func (o *Orchestrator) drainControlOps() {
	for {
		select {
		case op := <-o.controlCh:
			o.apply(op)
		default:
			return
		}
	}
}

func (o *Orchestrator) apply(op ControlOp) {
	var res ControlResult
	switch op.Kind {
	case OpAddCar:
		res.CarID, res.QueueID, res.Err = o.addCar(op.Phone)
	case OpUpdateBoothRate:
		res.Err = o.updateBoothRate(op.NodeID, op.Rate)
	case OpAddBooth:
		res.BoothID, res.ServiceRate, res.Err = o.addBooth(op.QueueID)
	case OpSetTimeFactor:
		res.Err = o.setTimeFactor(op.TimeFactor)
	case OpCancel:
		o.setStatus(StatusCancelled)
	case OpAdvance:
		before := o.stats.TotalCompletions
		res.Err = o.advanceSync(op.AdvanceSimSec)
		res.CompletedCars = o.stats.TotalCompletions - before
		res.CurrentTimeS = o.simTimeS
	}
	if op.Result != nil {
		op.Result <- res
		close(op.Result)
	}
}

func (o *Orchestrator) addCar(phone *model.PhoneConfig) (int64, int, error) {
	qi := o.assigner.Choose(o.queues, o.stream)
	o.stats.RecordArrival()
	if qi == -1 {
		o.stats.RecordDrop()
		return 0, 0, ErrFull
	}
	pc := o.defaultPhone
	if phone != nil {
		pc = *phone
	}
	o.nextCarID++
	c := model.NewCar(o.nextCarID, o.simClock, pc)
	c.NextTelemetryAt = o.simTimeS
	o.queues[qi].Admit(c, o.border.SafeDistance)
	o.cars[c.ID] = c
	return c.ID, o.queues[qi].ID, nil
}

func (o *Orchestrator) updateBoothRate(nodeID int, rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("service rate must be positive, got %v", rate)
	}
	for _, b := range o.booths {
		if b.ID == nodeID {
			b.ServiceRate = rate
			return nil
		}
	}
	return fmt.Errorf("booth %d: %w", nodeID, ErrNotFound)
}

func (o *Orchestrator) addBooth(queueID int) (int, float64, error) {
	for _, q := range o.queues {
		if q.ID == queueID {
			nodeID := len(o.booths)
			rate := o.border.ArrivalRate // sane default: match arrival rate until told otherwise
			b := model.NewBooth(nodeID, queueID, rate)
			o.booths = append(o.booths, b)
			q.AddBooth(nodeID)
			return nodeID, rate, nil
		}
	}
	return 0, 0, fmt.Errorf("queue %d: %w", queueID, ErrNotFound)
}

func (o *Orchestrator) setTimeFactor(factor float64) error {
	if factor <= 0 {
		return fmt.Errorf("time_factor must be positive, got %v", factor)
	}
	o.timeFactor = factor
	return nil
}

// advanceSync consumes exactly targetSeconds of sim time synchronously,
// ignoring wall clock, for the test hook control op.
func (o *Orchestrator) advanceSync(targetSeconds float64) error {
	remaining := targetSeconds
	for remaining > 0 {
		step := advanceSubStepSeconds
		if step > remaining {
			step = remaining
		}
		if err := o.tick(step); err != nil {
			return err
		}
		remaining -= step
	}
	return nil
}

// tick is the core state-advance function: spawn due arrivals, step every
// car under the car-following model, process booth completions and
// admissions, and emit due telemetry. It contains no wall-clock scheduling
// of its own -- callers (Run's ticker loop, or the advance test hook)
// decide what dt to feed it.
func (o *Orchestrator) tick(dt float64) error {
	o.spawnDueArrivals()

	g, _ := errgroup.WithContext(context.Background())
	for _, q := range o.queues {
		q := q
		g.Go(func() error {
			q.StepCars(dt, o.border.SafeDistance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	o.simTimeS += dt
	o.simClock = o.simClock.Add(secondsToDuration(dt))
	o.completeDueBooths()
	o.admitFromQueueHeads()
	if o.simCfg.EnableTelemetry {
		o.emitTelemetry()
	}
	return nil
}

func (o *Orchestrator) spawnDueArrivals() {
	due := o.arrival.Due(o.simTimeS, &o.border, o.stream)
	for range due {
		qi := o.assigner.Choose(o.queues, o.stream)
		o.stats.RecordArrival()
		if qi == -1 {
			o.stats.RecordDrop()
			continue
		}
		o.nextCarID++
		c := model.NewCar(o.nextCarID, o.simClock, o.defaultPhone)
		c.NextTelemetryAt = o.simTimeS
		o.queues[qi].Admit(c, o.border.SafeDistance)
		o.cars[c.ID] = c
	}
}

// completeDueBooths finishes any booth whose service duration has elapsed
// by the orchestrator's own sim clock -- never real wall clock, so this
// stays correct under any time_factor including the synchronous batch
// path driven by advanceSync.
func (o *Orchestrator) completeDueBooths() {
	for _, b := range o.booths {
		if !b.Due(o.simClock) {
			continue
		}
		carID := b.CurrentCarID
		serviceSeconds := b.Release()
		if car := o.cars[carID]; car != nil {
			car.Complete(o.simClock)
			o.stats.RecordCompletion(serviceSeconds)
		}
	}
}

func (o *Orchestrator) admitFromQueueHeads() {
	for _, q := range o.queues {
		for _, boothID := range q.BoothIDs {
			b := o.boothByID(boothID)
			if b == nil || b.IsBusy {
				continue
			}
			front := q.Front()
			if front == nil || front.PositionS > 0.01 {
				continue // not yet at the stop line
			}
			q.PopFront()
			o.stats.RecordWait(front.WaitSeconds(o.simClock))
			front.StartServing(b.ID, o.simClock)
			b.Accept(front.ID, o.simClock, func(ratePerMinute float64) float64 {
				return o.stream.Exp(ratePerMinute / 60.0)
			})
		}
	}
}

func (o *Orchestrator) emitTelemetry() {
	for _, c := range o.cars {
		if c.Status == model.CarCompleted {
			continue
		}
		q := o.queueByID(c.QueueID)
		var wl *model.Waitline
		if q != nil {
			wl = q.Waitline
		}
		if wl == nil {
			continue
		}
		frames := o.telemetry.Due(c, wl, o.simTimeS, o.simClock, o.stream)
		for _, f := range frames {
			if o.sink != nil {
				if err := o.sink.WriteFrame(f); err != nil {
					o.log.WithError(err).Warn("failed to write telemetry frame")
				}
			}
		}
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (o *Orchestrator) queueByID(id int) *model.Queue {
	for _, q := range o.queues {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (o *Orchestrator) boothByID(id int) *model.Booth {
	for _, b := range o.booths {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (o *Orchestrator) publish() {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(o.Snapshot())
}

// Snapshot builds a fresh, internally-consistent copy of current state.
// Safe to call only before Run starts or from the orchestrator's own
// goroutine (see the package's concurrency model) -- once Run is driving
// the tick loop, external callers get snapshots by subscribing to the
// observer plane instead.
func (o *Orchestrator) Snapshot() Snapshot {
	cars := make([]CarView, 0, len(o.cars))
	for _, c := range o.cars {
		cars = append(cars, CarView{ID: c.ID, PositionS: c.PositionS, Velocity: c.Velocity, Status: c.Status, QueueID: c.QueueID})
	}
	booths := make([]BoothView, 0, len(o.booths))
	for _, b := range o.booths {
		booths = append(booths, BoothView{
			ID: b.ID, QueueID: b.QueueID, IsBusy: b.IsBusy, CurrentCarID: b.CurrentCarID,
			ServiceRate: b.ServiceRate, TotalServed: b.TotalServed, TotalServiceSec: b.TotalServiceSec,
		})
	}
	var message string
	if o.failure != nil {
		message = o.failure.Error()
	}
	return Snapshot{
		SimulationID: o.ID,
		SimTimeS:     o.simTimeS,
		Status:       o.Status,
		Cars:         cars,
		Booths:       booths,
		Message:      message,
		Stats: StatsView{
			TotalArrivals:    o.stats.TotalArrivals,
			TotalCompletions: o.stats.TotalCompletions,
			Dropped:          o.stats.Dropped,
			ThroughputPerMin: o.stats.ThroughputPerMinute(o.simTimeS),
			MeanWaitSeconds:  o.stats.MeanWaitSeconds(),
			MeanServiceSec:   o.stats.MeanServiceSeconds(),
		},
	}
}
