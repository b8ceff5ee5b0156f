// Package scheduler runs the Simulator main loop: the deadline-paced
// send/wait/log/sleep cycle, plus the background reader that feeds
// the receive queue.
package scheduler

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/actlab/hilcosim/internal/logcsv"
	"github.com/actlab/hilcosim/internal/logging"
	"github.com/actlab/hilcosim/internal/metrics"
	"github.com/actlab/hilcosim/internal/rxqueue"
	"github.com/actlab/hilcosim/internal/wire"
	"github.com/actlab/hilcosim/pkg/plugin"
)

// pollInterval is the bounded poll period inside the response-wait
// window: busy-waiting is forbidden.
const pollInterval = 200 * time.Microsecond

// Options configures one run of the Simulator loop.
type Options struct {
	Conn         net.Conn
	Callbacks    plugin.Callbacks
	Logger       *logcsv.SimLogger
	StepPeriod   time.Duration
	ReplyTimeout time.Duration
	TotalSteps   uint64
	QueueCap     int
}

// Run executes the Simulator main loop to completion: TOTAL_STEPS
// steps, or a fatal send error. It owns the background reader's
// lifetime and always shuts it down before returning.
func Run(opts Options) error {
	if opts.StepPeriod < opts.ReplyTimeout {
		logging.L().Warn("degenerate_step_config",
			"step_ms", opts.StepPeriod, "reply_timeout_ms", opts.ReplyTimeout)
	}

	q := rxqueue.New(opts.QueueCap)
	var rxClosed atomic.Bool
	readerDone := make(chan struct{})
	go runReader(opts.Conn, q, &rxClosed, readerDone)
	defer func() {
		_ = opts.Conn.Close() // unblocks the reader's pending decode
		<-readerDone
	}()

	periodNs := opts.StepPeriod.Nanoseconds()
	nextDeadline := time.Now()

	var lastCmd []byte
	for stepID := uint64(0); stepID < opts.TotalSteps; stepID++ {
		nextDeadline = nextDeadline.Add(time.Duration(periodNs))

		cmd, err := opts.Callbacks.Producer(stepID)
		if err != nil {
			return fmt.Errorf("scheduler: command producer step %d: %w", stepID, err)
		}
		lastCmd = cmd

		tSimSend := time.Now()
		frame, err := wire.EncodeCommand(wire.CommandMessage{
			StepID:      stepID,
			TimestampNs: tSimSend.UnixNano(),
			Cmd:         cmd,
		})
		if err != nil {
			metrics.IncError(metrics.ErrDecode)
			return fmt.Errorf("scheduler: encode step %d: %w", stepID, err)
		}
		if _, err := opts.Conn.Write(frame); err != nil {
			metrics.IncError(metrics.ErrSend)
			return fmt.Errorf("scheduler: send step %d: %w", stepID, err)
		}

		rec := logcsv.SimStepRecord{StepID: stepID, TSimSendNs: tSimSend.UnixNano()}

		gotReply := false
		var telemetry wire.TelemetryMessage
		waitUntil := time.Now().Add(opts.ReplyTimeout)
		for time.Now().Before(waitUntil) {
			a, ok := q.TryPop()
			metrics.SetQueueDepth(q.Len())
			if !ok {
				time.Sleep(pollInterval)
				continue
			}
			if a.Message.StepID != stepID {
				continue // stale or future-step telemetry: discarded, never buffered forward
			}
			telemetry = a.Message
			rec.TSimRecvNs = a.ArrivalNs
			rec.TActRecvNs = telemetry.TActRecvNs
			rec.TActSendNs = telemetry.TActSendNs
			gotReply = true
			break
		}

		if gotReply {
			metrics.IncStep()
			metrics.ObserveRTT(float64(rec.TSimRecvNs-rec.TSimSendNs) / 1e9)
			if err := opts.Callbacks.Updater(stepID, cmd, true, telemetry.Payload); err != nil {
				return fmt.Errorf("scheduler: plant updater step %d: %w", stepID, err)
			}
		} else {
			rec.Timeout = true
			metrics.IncTimeout()
			neutral := plugin.ZeroLike(lastCmd)
			if err := opts.Callbacks.Updater(stepID, neutral, false, nil); err != nil {
				return fmt.Errorf("scheduler: plant updater (timeout) step %d: %w", stepID, err)
			}
		}

		slack := nextDeadline.Sub(time.Now())
		if slack > 0 {
			time.Sleep(slack)
			metrics.SetLastDeadlineMiss(0)
		} else {
			missMs := float64(-slack) / float64(time.Millisecond)
			rec.DeadlineMissMs = missMs
			metrics.IncDeadlineMiss()
			metrics.SetLastDeadlineMiss(missMs)
		}

		if err := opts.Logger.Append(rec); err != nil {
			metrics.IncError(metrics.ErrLogWrite)
			return fmt.Errorf("scheduler: log append step %d: %w", stepID, err)
		}
		metrics.IncStep()
	}
	return nil
}

// runReader owns the read half for the session's lifetime: decode,
// timestamp, enqueue, repeat. It never touches the send half.
func runReader(conn net.Conn, q *rxqueue.Queue, closedFlag *atomic.Bool, done chan struct{}) {
	defer close(done)
	for {
		msg, err := wire.DecodeTelemetry(conn)
		if err != nil {
			closedFlag.Store(true)
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				metrics.IncError(metrics.ErrDecode)
				logging.L().Warn("reader_decode_error", "error", err)
			}
			return
		}
		arrivalNs := time.Now().UnixNano()
		droppedBefore := q.Dropped()
		q.Push(rxqueue.Arrival{ArrivalNs: arrivalNs, Message: msg})
		if q.Dropped() > droppedBefore {
			metrics.IncQueueDrop()
		}
		metrics.SetQueueDepth(q.Len())
	}
}
