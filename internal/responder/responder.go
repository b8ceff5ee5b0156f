// Package responder runs the Hardware main loop: synchronous,
// single-threaded decode -> handle -> encode -> send, paced entirely
// by the Simulator.
package responder

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/actlab/hilcosim/internal/logcsv"
	"github.com/actlab/hilcosim/internal/metrics"
	"github.com/actlab/hilcosim/internal/wire"
	"github.com/actlab/hilcosim/pkg/plugin"
)

// Options configures one run of the Hardware loop.
type Options struct {
	Conn    net.Conn
	Handler plugin.CommandHandler
	Logger  *logcsv.HWLogger
	// DropReplies, when non-nil, is consulted per step_id to simulate a
	// reply-loss fault model without altering step_id semantics.
	DropReplies func(stepID uint64) bool
}

// Run processes commands until a clean decode error or EOF, which is
// the Hardware's normal shutdown path once the Simulator exits.
func Run(opts Options) error {
	for {
		cmd, err := wire.DecodeCommand(opts.Conn)
		if err != nil {
			// ShortRead, BadMagic, and DecodeError are all treated as the
			// peer having closed the link: the Hardware has no sender role
			// of its own, so any malformed or truncated read ends the run
			// cleanly rather than aborting it.
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				metrics.IncError(metrics.ErrDecode)
			}
			return nil
		}
		tActRecv := time.Now().UnixNano()

		reply, herr := opts.Handler(cmd.StepID, cmd.Cmd)
		if herr != nil {
			return fmt.Errorf("responder: command handler step %d: %w", cmd.StepID, herr)
		}
		tActSend := time.Now().UnixNano()

		rec := logcsv.HWStepRecord{
			StepID:     cmd.StepID,
			TActRecvNs: tActRecv,
			TActSendNs: tActSend,
		}

		drop := opts.DropReplies != nil && opts.DropReplies(cmd.StepID)
		if drop {
			rec.Note = "reply_dropped"
		} else {
			frame, err := wire.EncodeTelemetry(wire.TelemetryMessage{
				StepID:     cmd.StepID,
				TActRecvNs: tActRecv,
				TActSendNs: tActSend,
				Payload:    reply,
			})
			if err != nil {
				metrics.IncError(metrics.ErrDecode)
				return fmt.Errorf("responder: encode step %d: %w", cmd.StepID, err)
			}
			if _, err := opts.Conn.Write(frame); err != nil {
				metrics.IncError(metrics.ErrSend)
				return fmt.Errorf("responder: send step %d: %w", cmd.StepID, err)
			}
		}

		if err := opts.Logger.Append(rec); err != nil {
			metrics.IncError(metrics.ErrLogWrite)
			return fmt.Errorf("responder: log append step %d: %w", cmd.StepID, err)
		}
	}
}
