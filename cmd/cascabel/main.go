// Command cascabel serves the border-crossing simulation engine's REST and
// WebSocket API.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/gavargas22/cascabel/internal/httpapi"
	"github.com/sirupsen/logrus"
)

const (
	exitOK         = 0
	exitBadConfig  = 2
	exitBindFailed = 3
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	telemetryDir := flag.String("telemetry_dir", "./telemetry", "directory for per-simulation telemetry CSV files")
	logLevel := flag.String("log_level", "info", "log level: debug, info, warn, error")
	configPath := flag.String("config", "", "path to a JSON simulation config to start automatically at boot (optional)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cascabel: invalid log_level %q: %v\n", *logLevel, err)
		os.Exit(exitBadConfig)
	}
	log.SetLevel(level)

	if *telemetryDir != "" {
		if err := os.MkdirAll(*telemetryDir, 0o755); err != nil {
			log.WithError(err).Error("cannot create telemetry_dir")
			os.Exit(exitBadConfig)
		}
	}

	entry := logrus.NewEntry(log)
	server := httpapi.New(*telemetryDir, entry)

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.WithError(err).Error("cannot read config")
			os.Exit(exitBadConfig)
		}
		res, err := server.CreateSimulationFromJSON(data)
		if err != nil {
			log.WithError(err).Error("startup config rejected")
			os.Exit(exitBadConfig)
		}
		log.WithField("simulation_id", res.SimulationID).Info("started simulation from config")
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.WithError(err).WithField("addr", *addr).Error("cannot bind listen address")
		os.Exit(exitBindFailed)
	}

	log.WithField("addr", *addr).Info("cascabel listening")
	if err := http.Serve(ln, server.Routes()); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(exitBadConfig)
	}
	os.Exit(exitOK)
}
