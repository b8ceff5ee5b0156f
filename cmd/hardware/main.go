// Command hardware is the Hardware peer: it binds ACT_HOST:ACT_PORT,
// accepts exactly one Simulator connection, and answers every command
// with a telemetry reply computed by the numeric demo scenario.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/actlab/hilcosim/internal/config"
	"github.com/actlab/hilcosim/internal/discovery"
	"github.com/actlab/hilcosim/internal/logcsv"
	"github.com/actlab/hilcosim/internal/metrics"
	"github.com/actlab/hilcosim/internal/responder"
	"github.com/actlab/hilcosim/internal/runid"
	"github.com/actlab/hilcosim/internal/session"
	"github.com/actlab/hilcosim/internal/tcpstat"
	"github.com/actlab/hilcosim/pkg/demo"
)

func main() {
	cfg, err := config.Load("0.0.0.0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	l := setupLogger(cfg.LogFormat, cfg.LogLevel)
	id := runid.New()
	l = l.With("run_id", id)
	if cfg.StepPeriod < cfg.ReplyTimeout {
		l.Warn("degenerate_timing_config", "step_ms", cfg.StepPeriod, "reply_timeout_ms", cfg.ReplyTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MetricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.MetricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	var advert *discovery.Advertisement
	addr := net.JoinHostPort(cfg.ActHost, strconv.Itoa(cfg.ActPort))
	onListening := func(bound net.Addr) {
		if !cfg.MDNSEnable {
			return
		}
		_, portStr, splitErr := net.SplitHostPort(bound.String())
		if splitErr != nil {
			l.Warn("mdns_address_parse_failed", "error", splitErr, "addr", bound.String())
			return
		}
		port, convErr := strconv.Atoi(portStr)
		if convErr != nil {
			l.Warn("mdns_port_parse_failed", "error", convErr, "port", portStr)
			return
		}
		a, advErr := discovery.Start(ctx, cfg.MDNSName, port, id, version)
		if advErr != nil {
			l.Warn("mdns_start_failed", "error", advErr)
			return
		}
		advert = a
		l.Info("mdns_started", "port", port)
	}

	conn, err := session.AcceptOne(addr, onListening)
	if err != nil {
		l.Error("accept_error", "error", err)
		metrics.IncError(metrics.ErrAccept)
		os.Exit(1)
	}
	l.Info("peer_connected", "remote", conn.RemoteAddr().String())

	metrics.SetReadinessFunc(func() bool { return ctx.Err() == nil })

	stopStat := make(chan struct{})
	if cfg.TCPStatInterval > 0 {
		go tcpstat.Sampler(conn, cfg.TCPStatInterval, func(s tcpstat.Sample) {
			metrics.SetKernelRTT(s.RTT.Seconds())
		}, stopStat)
	}

	logger, err := logcsv.OpenHWLogger(cfg.LogDir)
	if err != nil {
		l.Error("log_open_error", "error", err)
		os.Exit(1)
	}
	defer logger.Close()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		l.Info("shutdown_signal", "signal", s.String())
		cancel()
		_ = conn.Close()
	}()

	runErr := responder.Run(responder.Options{
		Conn:    conn,
		Handler: demo.CommandHandler,
		Logger:  logger,
	})

	close(stopStat)
	if advert != nil {
		advert.Stop()
	}
	if runErr != nil {
		l.Error("responder_error", "error", runErr)
		os.Exit(1)
	}
	l.Info("hardware_exit_clean")
}
