// Command msh is the hibernating Minecraft proxy (spec.md §1-§2): it binds
// the public listen port, classifies incoming connections, and bridges
// them to a backend Minecraft server that it starts on demand and stops
// after an idle period.
//
// Wiring follows the teacher's main/atexit shape translated to Go idiom:
// original_source/py-version/minecraft-server-hibernation.py's main()
// opens the listener with SO_REUSEADDR and an infinite accept loop, and its
// atexit.register(stopEmptyMinecraftServer, forceExec=True) becomes a
// signal.Notify + Controller.ForceStop() here.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/sirupsen/logrus"

	"github.com/gekware/minecraft-server-hibernation/internal/backend"
	"github.com/gekware/minecraft-server-hibernation/internal/config"
	"github.com/gekware/minecraft-server-hibernation/internal/dispatch"
	"github.com/gekware/minecraft-server-hibernation/internal/favicon"
	"github.com/gekware/minecraft-server-hibernation/internal/meter"
	"github.com/gekware/minecraft-server-hibernation/internal/opsys"
	"github.com/gekware/minecraft-server-hibernation/internal/query"
	"github.com/gekware/minecraft-server-hibernation/internal/respond"
	"github.com/gekware/minecraft-server-hibernation/internal/telemetry"
)

// printBanner prints the startup banner the way the teacher's terminal
// output did for server console passthrough — cyan text, plain reset —
// except here it frames the proxy's own startup rather than a forwarded
// server log line.
func printBanner(addr string) {
	color.Cyan.Println("msh hibernation proxy starting")
	color.Cyan.Printf("listening on %s\n", addr)
}

func main() {
	configPath := "config.yml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	store, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	cfg := store.Snapshot()

	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	validFavicon, err := favicon.Validate(cfg.FaviconDataURI)
	if err != nil {
		logrus.WithError(err).Fatal("invalid faviconDataURI")
	}

	control := &backend.ShellControl{
		StartCommand: cfg.StartCommand,
		StopCommands: cfg.StopCommands,
	}

	bwMeter := meter.New(cfg.BandwidthWindow)
	synth := respond.New(cfg.ServerVersionName, cfg.ServerProtocol, validFavicon)

	var d *dispatch.Dispatcher
	ctrl := backend.New(control, func() int { return d.PlayerCount() }, cfg.ExpectedStartupTime, cfg.IdleShutdownDelay)

	d = dispatch.New(cfg.ServerHost, cfg.ServerPort, ctrl, synth, bwMeter)
	d.OnVersionLearned = func(name string, protocol int) {
		if err := store.UpdateServerVersion(name, protocol); err != nil {
			logrus.WithError(err).Warn("failed to persist learned server version")
		}
	}

	if cfg.Debug {
		go logDataRate(bwMeter)
		telemetryCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go runTelemetry(telemetryCtx, control)
	}

	if cfg.QueryPort != 0 {
		go runQueryResponder(cfg, d, ctrl)
	}

	lc := opsys.ListenConfig()
	ln, err := lc.Listen(context.Background(), "tcp", net.JoinHostPort(cfg.ListenHost, strconv.Itoa(cfg.ListenPort)))
	if err != nil {
		logrus.WithError(err).Fatal("failed to bind listener")
	}

	go waitForShutdownSignal(ctrl, ln)

	printBanner(ln.Addr().String())
	logrus.WithField("addr", ln.Addr()).Info("listening for new clients")
	if err := d.Serve(ln); err != nil {
		logrus.WithError(err).Error("accept loop terminated")
	}
}

// waitForShutdownSignal mirrors the teacher's atexit-registered forced
// stop: SIGINT/SIGTERM force the backend offline before the process exits.
func waitForShutdownSignal(ctrl *backend.Controller, ln net.Listener) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logrus.Info("shutting down")
	ctrl.ForceStop()
	ln.Close()
	os.Exit(0)
}

// logDataRate logs the bandwidth meter's rate once a second while debug is
// enabled, the same cadence as the original's printDataUsage Timer loop.
func logDataRate(m *meter.Meter) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if b := m.BytesInWindow(); b > 0 {
			logrus.WithField("rate_kbs", m.RateKBs()).Debug("data rate")
		}
	}
}

// runTelemetry waits for the backend to have a PID, then samples it until
// ctx is cancelled. If the backend restarts under a new PID across a
// hibernation cycle this only tracks the first one, which is acceptable
// for the advisory debug log it feeds.
func runTelemetry(ctx context.Context, control *backend.ShellControl) {
	sampler := telemetry.New(3 * time.Second)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pid := control.BackendPID(); pid != 0 {
				sampler.Run(ctx, pid)
				return
			}
		}
	}
}

func runQueryResponder(cfg config.Config, d *dispatch.Dispatcher, ctrl *backend.Controller) {
	source := queryStatusSource{ctrl: ctrl, dispatcher: d}
	responder := query.New(cfg.ListenHost, cfg.QueryPort, cfg.ListenPort, "msh hibernating proxy", cfg.ServerVersionName, source)
	if err := responder.Serve(); err != nil {
		logrus.WithError(err).Error("query responder terminated")
	}
}

type queryStatusSource struct {
	ctrl       *backend.Controller
	dispatcher *dispatch.Dispatcher
}

func (s queryStatusSource) Status() backend.Status { return s.ctrl.Status() }
func (s queryStatusSource) PlayerCount() int        { return s.dispatcher.PlayerCount() }
