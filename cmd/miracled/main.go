// miracled daemon -- Wi-Fi Display (Miracast) source/sink control plane.
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
	"golang.org/x/sys/unix"

	"github.com/miraclecast/miraclecast/internal/config"
	"github.com/miraclecast/miraclecast/internal/encoder"
	"github.com/miraclecast/miraclecast/internal/facade"
	wfdmetrics "github.com/miraclecast/miraclecast/internal/metrics"
	"github.com/miraclecast/miraclecast/internal/model"
	"github.com/miraclecast/miraclecast/internal/rtsp"
	"github.com/miraclecast/miraclecast/internal/supplicant"
	appversion "github.com/miraclecast/miraclecast/internal/version"
	"github.com/miraclecast/miraclecast/internal/wfd"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// shutdownTimeout is the maximum time to wait for the metrics HTTP server
// to drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("miracled starting",
		slog.String("version", appversion.Version),
		slog.String("rtsp_addr", cfg.RTSP.Addr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
		slog.String("role", cfg.Device.Role),
	)

	reg := prometheus.NewRegistry()
	collector := wfdmetrics.NewCollector(reg)

	mgr := model.NewManager()
	fcd := facade.NewManager(mgr, logger)

	if err := runDaemon(cfg, mgr, fcd, collector, reg, logger, *configPath, logLevel); err != nil {
		logger.Error("miracled exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("miracled stopped")
	return 0
}

// runDaemon wires up the supplicant per managed link, the RTSP listener,
// the D-Bus facade, and the metrics HTTP server, then runs them under an
// errgroup with signal-aware cancellation.
func runDaemon(
	cfg *config.Config,
	mgr *model.Manager,
	fcd *facade.Manager,
	collector *wfdmetrics.Collector,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	g.Go(func() error {
		logger.Info("metrics server listening", slog.String("addr", cfg.Metrics.Addr))
		return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	rtspLn, err := listenRTSP(ctx, cfg.RTSP.Addr)
	if err != nil {
		return fmt.Errorf("listen RTSP on %s: %w", cfg.RTSP.Addr, err)
	}
	defer rtspLn.Close()

	role := wfd.RoleSource
	if cfg.Device.Role == "sink" {
		role = wfd.RoleSink
	}

	g.Go(func() error {
		logger.Info("RTSP listener started", slog.String("addr", cfg.RTSP.Addr))
		return runRTSPServer(gCtx, rtspLn, cfg, role, collector, logger)
	})

	sups := startSupplicants(gCtx, g, cfg, mgr, collector, logger)
	defer stopSupplicants(sups, logger)

	busConn, err := startFacade(fcd, logger)
	if err != nil {
		return fmt.Errorf("start facade: %w", err)
	}
	if busConn != nil {
		defer busConn.Close()
	}

	startDaemonGoroutines(gCtx, g, configPath, logLevel, logger)

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, metricsSrv, rtspLn, logger)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}
	return nil
}

// listenRTSP binds the RTSP control socket with SO_REUSEADDR so a restarted
// daemon can rebind immediately instead of waiting out TIME_WAIT on a port
// that a dropped peer connection may have left lingering.
func listenRTSP(ctx context.Context, addr string) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}
	return lc.Listen(ctx, "tcp", addr)
}

// runRTSPServer accepts RTSP connections and spins up a session per
// connection. An encoder child is spawned for each connection as soon as
// it is accepted; if that spawn fails, the session runs with a no-op
// controller so RTSP negotiation still proceeds without a pipeline.
func runRTSPServer(ctx context.Context, ln net.Listener, cfg *config.Config, role wfd.Role, collector *wfdmetrics.Collector, logger *slog.Logger) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	return rtsp.Serve(ln, logger, func(conn net.Conn, bus *rtsp.Bus) {
		defer conn.Close()

		sessionID := uuid.NewString()
		sessLogger := logger.With(slog.String("session", sessionID), slog.String("remote", conn.RemoteAddr().String()))

		enc, err := spawnEncoder(ctx, cfg.Bin.Encoder, sessLogger)
		var ec wfd.EncoderController = noopEncoder{}
		if err != nil {
			sessLogger.Warn("encoder spawn failed, session will run without a pipeline", slog.String("error", err.Error()))
		} else {
			ec = enc
		}

		sess := wfd.NewSession(sessionID, role, bus, ec, sessLogger, conn.LocalAddr().String())
		collector.RegisterSession(sessionID)
		defer collector.UnregisterSession(sessionID)

		if err := sess.Run(ctx); err != nil {
			sessLogger.Warn("session ended", slog.String("error", err.Error()))
		}
	})
}

// spawnEncoder starts the encoder child for one RTSP session.
func spawnEncoder(ctx context.Context, binPath string, log *slog.Logger) (*encoder.Controller, error) {
	return encoder.Spawn(ctx, binPath, nil, log)
}

// noopEncoder is the EncoderController used when the encoder child could
// not be spawned, letting RTSP negotiation proceed without a pipeline
// rather than aborting the session.
type noopEncoder struct{}

func (noopEncoder) Configure(context.Context, encoder.Params) error { return nil }
func (noopEncoder) Start(context.Context) error                    { return nil }
func (noopEncoder) Pause(context.Context) error                    { return nil }
func (noopEncoder) Stop(context.Context) error                     { return nil }

// startSupplicants spawns one supplicant child per configured link and
// registers the link in the model.Manager.
func startSupplicants(ctx context.Context, g *errgroup.Group, cfg *config.Config, mgr *model.Manager, collector *wfdmetrics.Collector, logger *slog.Logger) []*supplicant.Supplicant {
	sups := make([]*supplicant.Supplicant, 0, len(cfg.Links))

	for _, lc := range cfg.Links {
		mgr.AddLink(model.LinkID(lc.Interface), lc.Interface)

		supLogger := logger.With(slog.String("link", lc.Interface))
		sup := supplicant.New(supplicant.Config{
			BinaryPath:    cfg.Bin.Supplicant,
			CtrlDir:       cfg.Bin.CtrlDir,
			Interface:     lc.Interface,
			DeviceName:    cfg.Device.Name,
			ConfigMethods: cfg.Device.ConfigMethods,
			Log:           supLogger,
		})

		link := lc.Interface
		g.Go(func() error {
			if err := sup.Start(ctx); err != nil {
				collector.IncSupplicantRestart(link)
				return fmt.Errorf("start supplicant on %s: %w", link, err)
			}
			return nil
		})

		sups = append(sups, sup)
	}

	return sups
}

func stopSupplicants(sups []*supplicant.Supplicant, logger *slog.Logger) {
	for _, sup := range sups {
		if err := sup.Stop(); err != nil {
			logger.Warn("failed to stop supplicant", slog.String("error", err.Error()))
		}
	}
}

// startFacade dials the system bus and exports the manager facade. Errors
// are logged but non-fatal: the daemon is still useful without a D-Bus
// control surface (e.g. when running outside a session with a bus).
func startFacade(fcd *facade.Manager, logger *slog.Logger) (*dbus.Conn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		logger.Warn("facade: no system bus available, control surface disabled", slog.String("error", err.Error()))
		return nil, nil
	}

	if err := facade.Export(conn, fcd); err != nil {
		conn.Close()
		logger.Warn("facade: export failed, control surface disabled", slog.String("error", err.Error()))
		return nil, nil
	}

	logger.Info("facade exported", slog.String("bus_name", facade.BusName))
	return conn, nil
}

// -------------------------------------------------------------------------
// Systemd Integration -- sd_notify + watchdog
// -------------------------------------------------------------------------

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

func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog", slog.String("error", err.Error()))
		return nil
	}
	if interval == 0 {
		logger.Debug("systemd watchdog not configured, skipping keepalive")
		return nil
	}

	tickInterval := interval / 2
	logger.Info("systemd watchdog enabled",
		slog.Duration("watchdog_sec", interval),
		slog.Duration("keepalive_interval", tickInterval),
	)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, wdErr := daemon.SdNotify(false, daemon.SdNotifyWatchdog); wdErr != nil {
				logger.Warn("failed to send watchdog keepalive", slog.String("error", wdErr.Error()))
			}
		}
	}
}

// -------------------------------------------------------------------------
// SIGHUP Reload -- log level only; link topology is static per process
// -------------------------------------------------------------------------

func startDaemonGoroutines(ctx context.Context, g *errgroup.Group, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	g.Go(func() error {
		return runWatchdog(ctx, logger)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(ctx, sigHUP, configPath, logLevel, logger)
		return nil
	})
}

func handleSIGHUP(ctx context.Context, sigHUP <-chan os.Signal, configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading log level")
			reloadLogLevel(configPath, logLevel, logger)
		}
	}
}

// reloadLogLevel re-reads the log level from configPath. Link topology
// changes require a restart: supplicant children are spawned once at
// startup and are not hot-swappable.
func reloadLogLevel(configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	newCfg, err := loadConfig(configPath)
	if err != nil {
		logger.Error("failed to reload configuration, keeping current settings", slog.String("error", err.Error()))
		return
	}

	oldLevel := logLevel.Level()
	newLevel := config.ParseLogLevel(newCfg.Log.Level)
	logLevel.Set(newLevel)

	logger.Info("configuration reloaded",
		slog.String("old_log_level", oldLevel.String()),
		slog.String("new_log_level", newLevel.String()),
	)
}

// -------------------------------------------------------------------------
// Graceful Shutdown
// -------------------------------------------------------------------------

func gracefulShutdown(ctx context.Context, metricsSrv *http.Server, rtspLn net.Listener, logger *slog.Logger) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	return metricsSrv.Shutdown(shutdownCtx)
}

// -------------------------------------------------------------------------
// Server Setup
// -------------------------------------------------------------------------

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
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
