// Package httpapi is the thin HTTP+WebSocket façade over the simulation
// engine: it decodes requests into config and control types, submits
// control ops through an orchestrator's FIFO, and serves cached snapshots
// from the observer plane. It never reaches into an orchestrator's fields
// directly.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gavargas22/cascabel/internal/config"
	"github.com/gavargas22/cascabel/internal/model"
	"github.com/gavargas22/cascabel/internal/observer"
	"github.com/gavargas22/cascabel/internal/sim"
	"github.com/sirupsen/logrus"
)

// entry bundles everything the server needs to talk to one running
// simulation: the orchestrator itself (control surface only), the
// broadcaster subscribers attach to, and a cached copy of the latest
// snapshot so status/state reads never touch orchestrator state directly.
type entry struct {
	orch          *sim.Orchestrator
	broadcaster   *observer.Broadcaster
	sink          *observer.CSVSink
	telemetryPath string
	maxSimTime    float64
	cancel        context.CancelFunc
	latest        atomic.Value // sim.Snapshot
}

// Server holds the registry of active simulations. Safe for concurrent use.
type Server struct {
	mu           sync.RWMutex
	sims         map[string]*entry
	telemetryDir string
	log          *logrus.Entry
}

// New builds a Server that writes each simulation's telemetry CSV under
// telemetryDir.
func New(telemetryDir string, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{sims: make(map[string]*entry), telemetryDir: telemetryDir, log: log}
}

// Routes builds the server's handler using Go 1.22's method+wildcard mux
// patterns, so no third-party router is needed for the REST surface.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /simulate", s.handleCreate)
	mux.HandleFunc("GET /simulation/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /simulation/{id}/state", s.handleState)
	mux.HandleFunc("POST /simulation/{id}/add_car", s.handleAddCar)
	mux.HandleFunc("PUT /simulation/{id}/service_node/{node_id}", s.handleServiceNode)
	mux.HandleFunc("POST /simulation/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /simulation/{id}/add_station", s.handleAddStation)
	mux.HandleFunc("PUT /simulation/{id}/time_speed", s.handleTimeSpeed)
	mux.HandleFunc("DELETE /simulation/{id}", s.handleDelete)
	mux.HandleFunc("GET /simulation/{id}/telemetry", s.handleTelemetryDownload)
	mux.HandleFunc("GET /ws/{id}", s.handleWebSocket)
	return mux
}

type createRequest struct {
	Border     config.BorderConfig     `json:"border_config"`
	Simulation config.SimulationConfig `json:"simulation_config"`
	Phone      *model.PhoneConfig      `json:"phone_config"`
	Waitlines  [][]model.LatLon        `json:"waitlines"`
	Seed       int64                   `json:"seed"`
}

type createResponse struct {
	SimulationID string `json:"simulation_id"`
	Status       string `json:"status"`
	WebsocketURL string `json:"websocket_url"`
	Message      string `json:"message"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.CreateSimulation(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateSimulation builds and starts one simulation from a decoded request,
// registers it, and returns its id -- the shared path behind both the
// /simulate handler and any startup-time configuration passed on the
// command line.
func (s *Server) CreateSimulation(req createRequest) (createResponse, error) {
	if req.Simulation == (config.SimulationConfig{}) {
		req.Simulation = config.DefaultSimulationConfig()
	}
	if req.Phone != nil {
		if err := config.ValidatePhoneConfig(req.Phone); err != nil {
			return createResponse{}, err
		}
	}

	waitlines := make([]*model.Waitline, len(req.Waitlines))
	for i, pts := range req.Waitlines {
		wl, err := model.NewWaitline(pts)
		if err != nil {
			return createResponse{}, err
		}
		waitlines[i] = wl
	}

	broadcaster := observer.NewBroadcaster(observer.DefaultBacklog, false, s.log)

	var sink *observer.CSVSink
	var telemetryPath string
	if req.Simulation.EnableTelemetry && s.telemetryDir != "" {
		telemetryPath = filepath.Join(s.telemetryDir, fmt.Sprintf("telemetry-%d.csv", time.Now().UnixNano()))
		var err error
		sink, err = observer.NewCSVSink(telemetryPath)
		if err != nil {
			return createResponse{}, err
		}
	}

	orch, err := sim.New(sim.Options{
		Border:       req.Border,
		Simulation:   req.Simulation,
		Waitlines:    waitlines,
		Seed:         req.Seed,
		Publisher:    broadcaster,
		Sink:         sinkOrNil(sink),
		DefaultPhone: req.Phone,
	})
	if err != nil {
		return createResponse{}, err
	}

	e := &entry{
		orch:          orch,
		broadcaster:   broadcaster,
		sink:          sink,
		telemetryPath: telemetryPath,
		maxSimTime:    req.Simulation.MaxSimulationTime,
	}
	e.latest.Store(orch.Snapshot())

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	_, cacheCh := broadcaster.Subscribe()
	go func() {
		for snap := range cacheCh {
			e.latest.Store(snap)
		}
	}()
	go orch.Run(ctx)

	s.mu.Lock()
	s.sims[orch.ID] = e
	s.mu.Unlock()

	return createResponse{
		SimulationID: orch.ID,
		Status:       string(sim.StatusRunning),
		WebsocketURL: "/ws/" + orch.ID,
		Message:      "simulation started",
	}, nil
}

// CreateSimulationFromJSON decodes a createRequest from raw JSON, for
// callers (the CLI's --config flag) that have a file rather than an HTTP
// request body.
func (s *Server) CreateSimulationFromJSON(data []byte) (createResponse, error) {
	var req createRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return createResponse{}, err
	}
	return s.CreateSimulation(req)
}

func sinkOrNil(s *observer.CSVSink) sim.TelemetrySink {
	if s == nil {
		return nil
	}
	return s
}

func (s *Server) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sims[id]
	return e, ok
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, sim.ErrNotFound)
		return
	}
	snap := e.latest.Load().(sim.Snapshot)
	progress := 0.0
	if e.maxSimTime > 0 {
		progress = snap.SimTimeS / e.maxSimTime
		switch {
		case progress > 1:
			progress = 1
		case progress < 0:
			progress = 0
		}
	}
	resp := map[string]any{
		"simulation_id":     snap.SimulationID,
		"status":            snap.Status,
		"progress":          progress,
		"current_time":      snap.SimTimeS,
		"total_arrivals":    snap.Stats.TotalArrivals,
		"total_completions": snap.Stats.TotalCompletions,
	}
	if snap.Message != "" {
		resp["message"] = snap.Message
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, sim.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e.latest.Load().(sim.Snapshot))
}

type addCarRequest struct {
	Phone *model.PhoneConfig `json:"phone_config"`
}

func (s *Server) handleAddCar(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, sim.ErrNotFound)
		return
	}
	var req addCarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Phone != nil {
		if err := config.ValidatePhoneConfig(req.Phone); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	res, err := s.submitAndWait(r.Context(), e, sim.ControlOp{Kind: sim.OpAddCar, Phone: req.Phone})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if res.Err != nil {
		writeError(w, statusFor(res.Err), res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"car_id":   res.CarID,
		"queue_id": res.QueueID,
		"message":  "car admitted",
	})
}

func (s *Server) handleServiceNode(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, sim.ErrNotFound)
		return
	}
	nodeID, err := strconv.Atoi(r.PathValue("node_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rate, err := strconv.ParseFloat(r.URL.Query().Get("rate"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("rate query parameter: %w", err))
		return
	}
	res, err := s.submitAndWait(r.Context(), e, sim.ControlOp{Kind: sim.OpUpdateBoothRate, NodeID: nodeID, Rate: rate})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if res.Err != nil {
		writeError(w, statusFor(res.Err), res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"node_id":  nodeID,
		"new_rate": rate,
		"message":  "service rate updated",
	})
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, sim.ErrNotFound)
		return
	}
	dt, err := strconv.ParseFloat(r.URL.Query().Get("dt"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("dt query parameter: %w", err))
		return
	}
	if dt <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("dt must be positive"))
		return
	}
	res, err := s.submitAndWait(r.Context(), e, sim.ControlOp{Kind: sim.OpAdvance, AdvanceSimSec: dt})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if res.Err != nil {
		writeError(w, statusFor(res.Err), res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"advanced_by":    dt,
		"completed_cars": res.CompletedCars,
		"current_time":   res.CurrentTimeS,
	})
}

func (s *Server) handleAddStation(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, sim.ErrNotFound)
		return
	}
	queueID := 0
	if qs := r.URL.Query().Get("queue_id"); qs != "" {
		v, err := strconv.Atoi(qs)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("queue_id query parameter: %w", err))
			return
		}
		queueID = v
	}
	res, err := s.submitAndWait(r.Context(), e, sim.ControlOp{Kind: sim.OpAddBooth, QueueID: queueID})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if res.Err != nil {
		writeError(w, statusFor(res.Err), res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"station_id":   res.BoothID,
		"queue_id":     queueID,
		"service_rate": res.ServiceRate,
	})
}

type timeSpeedRequest struct {
	TimeFactor float64 `json:"time_factor"`
}

func (s *Server) handleTimeSpeed(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, sim.ErrNotFound)
		return
	}
	var req timeSpeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.submitAndWait(r.Context(), e, sim.ControlOp{Kind: sim.OpSetTimeFactor, TimeFactor: req.TimeFactor})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if res.Err != nil {
		writeError(w, statusFor(res.Err), res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      string(e.orch.CurrentStatus()),
		"time_factor": req.TimeFactor,
	})
}

// handleDelete cancels a running simulation but keeps its entry registered
// so its terminal status and finalized telemetry stay resolvable afterward
// -- deleting the map entry outright would 404 a subsequent status poll or
// telemetry download for a simulation that just finished.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, ok := s.lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, sim.ErrNotFound)
		return
	}
	if e.orch.CurrentStatus() == sim.StatusRunning {
		if _, err := s.submitAndWait(r.Context(), e, sim.ControlOp{Kind: sim.OpCancel}); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		e.cancel()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"simulation_id": id,
		"status":        string(e.orch.CurrentStatus()),
	})
}

func (s *Server) handleTelemetryDownload(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, sim.ErrNotFound)
		return
	}
	if e.orch.CurrentStatus() == sim.StatusRunning {
		writeError(w, http.StatusConflict, fmt.Errorf("telemetry is only available once the simulation reaches a terminal state"))
		return
	}
	if e.telemetryPath == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("telemetry not enabled for this simulation"))
		return
	}
	if _, err := os.Stat(e.telemetryPath); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, e.telemetryPath)
}

// submitAndWait deposits a control op with a result channel and blocks
// until the orchestrator applies it or the request context is cancelled.
func (s *Server) submitAndWait(ctx context.Context, e *entry, op sim.ControlOp) (sim.ControlResult, error) {
	op.Result = make(chan sim.ControlResult, 1)
	if err := e.orch.Submit(op); err != nil {
		return sim.ControlResult{}, err
	}
	select {
	case res := <-op.Result:
		return res, nil
	case <-ctx.Done():
		return sim.ControlResult{}, ctx.Err()
	case <-time.After(30 * time.Second):
		return sim.ControlResult{}, fmt.Errorf("control op timed out")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sim.ErrTerminal):
		return http.StatusConflict
	case errors.Is(err, sim.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sim.ErrFull):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
