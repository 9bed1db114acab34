package observer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/gavargas22/cascabel/internal/sim"
)

var telemetryCSVHeader = []string{
	"timestamp_iso8601", "car_id", "status", "queue_id",
	"latitude", "longitude", "heading_deg", "speed_mps",
	"accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z",
}

// CSVSink is the append-only telemetry archive: one row per sensor frame,
// header written on first row, flushed only on the terminal transition (or
// an explicit Finalize) to keep the hot path free of per-frame syscalls.
type CSVSink struct {
	mu            sync.Mutex
	f             *os.File
	w             *csv.Writer
	headerWritten bool
	rows          int64
}

// NewCSVSink creates (or truncates) the file at path for writing.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("telemetry csv: create %s: %w", path, err)
	}
	return &CSVSink{f: f, w: csv.NewWriter(f)}, nil
}

// WriteFrame appends one sensor frame as a CSV row.
func (s *CSVSink) WriteFrame(frame sim.SensorFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.headerWritten {
		if err := s.w.Write(telemetryCSVHeader); err != nil {
			return fmt.Errorf("telemetry csv: write header: %w", err)
		}
		s.headerWritten = true
	}
	row := []string{
		frame.TimestampISO8601,
		strconv.FormatInt(frame.CarID, 10),
		string(frame.Status),
		strconv.Itoa(frame.QueueID),
		strconv.FormatFloat(frame.Latitude, 'f', 8, 64),
		strconv.FormatFloat(frame.Longitude, 'f', 8, 64),
		strconv.FormatFloat(frame.HeadingDeg, 'f', 3, 64),
		strconv.FormatFloat(frame.SpeedMPS, 'f', 4, 64),
		strconv.FormatFloat(frame.AccelX, 'f', 5, 64),
		strconv.FormatFloat(frame.AccelY, 'f', 5, 64),
		strconv.FormatFloat(frame.AccelZ, 'f', 5, 64),
		strconv.FormatFloat(frame.GyroX, 'f', 5, 64),
		strconv.FormatFloat(frame.GyroY, 'f', 5, 64),
		strconv.FormatFloat(frame.GyroZ, 'f', 5, 64),
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("telemetry csv: write row: %w", err)
	}
	s.rows++
	return nil
}

// RowCount is the number of frame rows written so far (excludes the header).
func (s *CSVSink) RowCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Finalize flushes and closes the underlying file. Safe to call once, at
// the simulation's terminal transition.
func (s *CSVSink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	err := s.w.Error()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
