// Command scenicloopd serves scenic loop route discovery: graph
// preparation, loop enumeration and route annotation (spec.md §2) over a
// line-delimited JSON session protocol (spec.md §6).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NERVsystems/scenicloops/pkg/elevation"
	"github.com/NERVsystems/scenicloops/pkg/graphstore"
	"github.com/NERVsystems/scenicloops/pkg/ingest"
	"github.com/NERVsystems/scenicloops/pkg/monitoring"
	"github.com/NERVsystems/scenicloops/pkg/prepare"
	"github.com/NERVsystems/scenicloops/pkg/registration"
	"github.com/NERVsystems/scenicloops/pkg/session"
	"github.com/NERVsystems/scenicloops/pkg/tracing"
	ver "github.com/NERVsystems/scenicloops/pkg/version"
)

var (
	showVersionFlag bool
	debug           bool

	listenAddr  string
	graphsDir   string
	srtmDir     string
	tileCap     int
	minLoopLenM float64

	overpassURL   string
	overpassRPS   float64
	overpassBurst int

	enableMonitoring bool
	monitoringAddr   string

	enableRegistration bool
	registryURL        string
	serviceURL         string
	internalURL        string
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")

	flag.StringVar(&listenAddr, "listen-addr", ":7090", "TCP address for the line-delimited JSON session protocol")
	flag.StringVar(&graphsDir, "graphs-dir", "./graphs", "Directory holding persisted prepared graphs")
	flag.StringVar(&srtmDir, "srtm-dir", "./srtm", "Directory of SRTM .hgt tiles backing the elevation oracle")
	flag.IntVar(&tileCap, "elevation-tile-cache", 64, "Number of resident SRTM tiles cached in memory")
	flag.Float64Var(&minLoopLenM, "min-loop-length-m", 600, "Minimum accepted loop length in meters (spec.md §4.F)")

	flag.StringVar(&overpassURL, "overpass-url", "https://overpass-api.de/api/interpreter", "Overpass API endpoint for network ingest")
	flag.Float64Var(&overpassRPS, "overpass-rps", 1.0, "Overpass rate limit in requests per second")
	flag.IntVar(&overpassBurst, "overpass-burst", 1, "Overpass rate limit burst size")

	flag.BoolVar(&enableMonitoring, "enable-monitoring", true, "Enable Prometheus metrics and health endpoints")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")

	flag.BoolVar(&enableRegistration, "enable-registration", false, "Enable service registration with nerva-monitor")
	flag.StringVar(&registryURL, "registry-url", "", "nerva-monitor registry URL (e.g., http://nerva-monitor:7083)")
	flag.StringVar(&serviceURL, "service-url", "", "External URL where this service is accessible")
	flag.StringVar(&internalURL, "internal-url", "", "Internal URL for container environments")
}

func main() {
	flag.Parse()

	if showVersionFlag {
		fmt.Println(ver.String())
		return
	}

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
	}

	oracle, err := elevation.New(logger, elevation.NewSRTMSource(srtmDir), tileCap)
	if err != nil {
		logger.Error("failed to construct elevation oracle", "error", err)
		os.Exit(1)
	}

	store, err := graphstore.New(graphsDir, logger, oracle)
	if err != nil {
		logger.Error("failed to open graph store", "error", err)
		os.Exit(1)
	}

	ingestClient := ingest.NewClient(logger, overpassURL, overpassRPS, overpassBurst)

	dispatcher := session.New(logger, store, oracle, ingestClient, prepare.Options{}, minLoopLenM)

	var healthChecker *monitoring.HealthChecker
	var monitoringServer *http.Server
	if enableMonitoring {
		healthChecker = monitoring.NewHealthChecker(monitoring.ServiceName, ver.BuildVersion)
		defer healthChecker.Shutdown()

		overpassMonitor := monitoring.NewConnectionMonitor("overpass", healthChecker, func() error {
			return ingestClient.CheckHealth(ctx)
		}, 30*time.Second)
		overpassMonitor.Start()
		defer overpassMonitor.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/health", healthChecker.HealthHandler())
		mux.Handle("/ready", healthChecker.ReadinessHandler())
		mux.Handle("/live", healthChecker.LivenessHandler())

		monitoringServer = &http.Server{
			Addr:              monitoringAddr,
			Handler:           mux,
			ReadHeaderTimeout: 30 * time.Second,
		}
		go func() {
			logger.Info("starting monitoring server", "addr", monitoringAddr)
			if err := monitoringServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("monitoring server error", "error", err)
			}
		}()
	}

	var regClient *registration.Client
	if enableRegistration {
		svcURL := serviceURL
		if svcURL == "" {
			svcURL = fmt.Sprintf("tcp://localhost%s", listenAddr)
		}
		regCfg := registration.Config{
			Enabled:     enableRegistration,
			RegistryURL: registryURL,
			ServiceName: "scenicloopd",
			ServiceType: "routing",
			ServiceURL:  svcURL,
			HealthURL:   fmt.Sprintf("http://localhost%s/health", monitoringAddr),
			InternalURL: internalURL,
			Version:     ver.BuildVersion,
			Capabilities: []string{"loop-enumeration", "graph-preparation", "route-annotation"},
		}
		regClient = registration.NewClient(regCfg, logger)
		regClient.Start(ctx)
		defer regClient.Stop()
	}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", listenAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("scenicloopd listening", "addr", listenAddr, "graphs_dir", graphsDir, "srtm_dir", srtmDir)

	serve(ctx, logger, dispatcher, ln)

	if monitoringServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := monitoringServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown monitoring server", "error", err)
		}
	}
	logger.Info("scenicloopd stopped")
}
