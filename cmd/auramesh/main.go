// Command auramesh runs the BLE aura-mesh node daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrKot86/ble-aura-mesh/internal/config"
	"github.com/MrKot86/ble-aura-mesh/internal/led"
	"github.com/MrKot86/ble-aura-mesh/internal/mesh"
	"github.com/MrKot86/ble-aura-mesh/internal/metrics"
	"github.com/MrKot86/ble-aura-mesh/internal/radio"
	"github.com/MrKot86/ble-aura-mesh/internal/resetter"
	"github.com/MrKot86/ble-aura-mesh/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()))
		return 1
	}

	logger := newLogger(cfg.Log)
	logger.Info("auramesh starting",
		slog.String("radio_backend", cfg.Radio.Backend),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("led_backend", cfg.LED.Backend),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	st, err := buildStore(cfg.Store)
	if err != nil {
		logger.Error("failed to build store backend", slog.String("error", err.Error()))
		return 1
	}

	info, err := mesh.LoadDeviceInfo(st)
	if err != nil {
		logger.Warn("device_info read failed, falling back to defaults", slog.String("error", err.Error()))
	}

	staticAddr, ok, err := mesh.LoadStaticAddr(st)
	if err != nil {
		logger.Warn("static_addr read failed, generating a fresh one", slog.String("error", err.Error()))
	}
	if !ok {
		staticAddr, err = mesh.GenerateStaticAddr()
		if err != nil {
			logger.Error("failed to generate static address", slog.String("error", err.Error()))
			return 1
		}
		if err := mesh.SaveStaticAddr(st, staticAddr); err != nil {
			logger.Warn("failed to persist generated static address", slog.String("error", err.Error()))
		}
	}

	rd, err := buildRadio(cfg.Radio)
	if err != nil {
		logger.Error("failed to build radio backend", slog.String("error", err.Error()))
		return 1
	}

	ledMgr, err := buildLED(cfg.LED)
	if err != nil {
		logger.Error("failed to build LED backend", slog.String("error", err.Error()))
		return 1
	}

	var reset mesh.Resetter = resetter.Noop{}
	if cfg.Mesh.AllowReset {
		reset = resetter.NewProcess(true)
	}

	core := mesh.NewCore(logger, rd, st, ledMgr, info, staticAddr,
		mesh.WithConfig(meshConfig(cfg.Mesh)),
		mesh.WithMetrics(collector),
		mesh.WithResetter(reset),
	)

	if err := runDaemon(cfg, core, st, info, reg, logger); err != nil {
		logger.Error("auramesh exited with error", slog.String("error", err.Error()))
		return 1
	}
	logger.Info("auramesh stopped")
	return 0
}

// runDaemon sets the starting mode, then runs the mesh cycle loop and the
// metrics HTTP server under a signal-aware errgroup, mirroring the
// listener/server supervision shape of gobfd's runServers.
func runDaemon(cfg *config.Config, core *mesh.Core, st mesh.Store, info mesh.DeviceInfo, reg *prometheus.Registry, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	if err := core.SetMode(gCtx, info.Mode); err != nil {
		return fmt.Errorf("set initial mode: %w", err)
	}

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	g.Go(func() error {
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr))
		return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	g.Go(func() error {
		return core.Run(gCtx)
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return shutdown(gCtx, core, st, metricsSrv, logger)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run daemon: %w", err)
	}
	return nil
}

// shutdown persists the current device identity before the process exits,
// so the next boot resumes the same mode/affinity/level rather than
// falling back to defaults.
func shutdown(ctx context.Context, core *mesh.Core, st mesh.Store, metricsSrv *http.Server, logger *slog.Logger) error {
	logger.Info("shutting down")
	notifyStopping(logger)

	if err := mesh.SaveDeviceInfo(st, core.DeviceInfo()); err != nil {
		logger.Warn("failed to persist device_info on shutdown", slog.String("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.DefaultConfig(), nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: config.ParseLogLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func meshConfig(mc config.MeshConfig) mesh.Config {
	return mesh.Config{
		RSSIThreshold:           int8(mc.RSSIThreshold),
		LvlupTokenRSSIThreshold: int8(mc.LvlupTokenRSSIThreshold),
		StartupDelay:            mc.StartupDelay,
		CycleDuration:           mc.CycleDuration,
		BlinkInterval:           mc.BlinkInterval,
		SettleDelay:             mc.SettleDelay,
		PeerDiscoveryJitterMS:   mc.PeerDiscoveryJitterMS,
	}
}

func buildStore(cfg config.StoreConfig) (mesh.Store, error) {
	switch cfg.Backend {
	case "mem":
		return store.NewMemStore(), nil
	default:
		return store.NewFileStore(cfg.Path)
	}
}

func buildRadio(cfg config.RadioConfig) (mesh.Radio, error) {
	switch cfg.Backend {
	case "bluez":
		return radio.NewBlueZ(cfg.Adapter)
	case "hcisocket":
		return radio.NewHCISocket(uint16(cfg.Device))
	default:
		bus := radio.NewBus()
		mac, err := mesh.GenerateStaticAddr()
		if err != nil {
			return nil, fmt.Errorf("generate simulated radio identity: %w", err)
		}
		return radio.NewSimulated(bus, mac.MAC, -50), nil
	}
}

func buildLED(cfg config.LEDConfig) (mesh.LEDManager, error) {
	if cfg.Backend != "periph" {
		return led.NewSimulated(), nil
	}

	inverted := make(map[string]bool, len(cfg.InvertedPins))
	for _, name := range cfg.InvertedPins {
		inverted[name] = true
	}
	polarityFor := func(pin string) led.Polarity {
		if inverted[pin] {
			return led.Inverted
		}
		return led.Normal
	}

	entries := []led.Entry{
		{Index: mesh.LEDGreen, Pin: cfg.GreenPin, Polarity: polarityFor(cfg.GreenPin)},
		{Index: mesh.LEDRed, Pin: cfg.RedPin, Polarity: polarityFor(cfg.RedPin)},
		{Index: mesh.LEDOnboard, Pin: cfg.OnboardPin, Polarity: polarityFor(cfg.OnboardPin)},
		{Index: mesh.LEDDeviceOutput, Pin: cfg.OutputPin, Polarity: polarityFor(cfg.OutputPin)},
	}
	return led.NewPeriph(entries)
}
