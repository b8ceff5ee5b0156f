// Command simulator is the Simulator pacemaker: it dials the Hardware
// peer at ACT_HOST:ACT_PORT and drives TOTAL_STEPS of the numeric
// demo scenario at STEP_MS cadence.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/actlab/hilcosim/internal/config"
	"github.com/actlab/hilcosim/internal/logcsv"
	"github.com/actlab/hilcosim/internal/metrics"
	"github.com/actlab/hilcosim/internal/runid"
	"github.com/actlab/hilcosim/internal/scheduler"
	"github.com/actlab/hilcosim/internal/session"
	"github.com/actlab/hilcosim/internal/tcpstat"
	"github.com/actlab/hilcosim/pkg/demo"
	"github.com/actlab/hilcosim/pkg/plugin"
)

func main() {
	cfg, err := config.Load("act")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	l := setupLogger(cfg.LogFormat, cfg.LogLevel)
	l = l.With("run_id", runid.New())
	if cfg.StepPeriod < cfg.ReplyTimeout {
		l.Warn("degenerate_timing_config", "step_ms", cfg.StepPeriod, "reply_timeout_ms", cfg.ReplyTimeout)
	}

	if cfg.MetricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.MetricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	addr := fmt.Sprintf("%s:%d", cfg.ActHost, cfg.ActPort)
	conn, err := session.Dial(addr)
	if err != nil {
		l.Error("dial_error", "error", err)
		os.Exit(1)
	}
	defer conn.Close()
	l.Info("connected", "addr", addr)

	metrics.SetReadinessFunc(func() bool { return true })

	stopStat := make(chan struct{})
	defer close(stopStat)
	if cfg.TCPStatInterval > 0 {
		go tcpstat.Sampler(conn, cfg.TCPStatInterval, func(s tcpstat.Sample) {
			metrics.SetKernelRTT(s.RTT.Seconds())
		}, stopStat)
	}

	logger, err := logcsv.OpenSimLogger(cfg.LogDir)
	if err != nil {
		l.Error("log_open_error", "error", err)
		os.Exit(1)
	}
	defer logger.Close()

	var plant demo.Plant
	runErr := scheduler.Run(scheduler.Options{
		Conn: conn,
		Callbacks: plugin.Callbacks{
			Producer: demo.CommandProducer,
			Updater:  plant.Updater,
		},
		Logger:       logger,
		StepPeriod:   cfg.StepPeriod,
		ReplyTimeout: cfg.ReplyTimeout,
		TotalSteps:   cfg.TotalSteps,
	})
	if runErr != nil {
		l.Error("scheduler_error", "error", runErr)
		os.Exit(1)
	}
	l.Info("simulator_exit_clean", "total_steps", cfg.TotalSteps)
}
