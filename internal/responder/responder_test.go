package responder

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/actlab/hilcosim/internal/logcsv"
	"github.com/actlab/hilcosim/internal/wire"
)

func TestRunEchoesEveryCommand(t *testing.T) {
	simSide, hwSide := net.Pipe()
	defer simSide.Close()

	dir := t.TempDir()
	logger, err := logcsv.OpenHWLogger(dir)
	if err != nil {
		t.Fatalf("OpenHWLogger: %v", err)
	}
	defer logger.Close()

	handler := func(stepID uint64, cmd json.RawMessage) (json.RawMessage, error) {
		var v struct {
			V float64 `json:"v"`
		}
		if err := json.Unmarshal(cmd, &v); err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			V float64 `json:"v"`
		}{V: v.V * 2})
	}

	done := make(chan error, 1)
	go func() { done <- Run(Options{Conn: hwSide, Handler: handler, Logger: logger}) }()

	for step := uint64(0); step < 3; step++ {
		cmd, _ := json.Marshal(struct {
			V float64 `json:"v"`
		}{V: float64(step)})
		frame, err := wire.EncodeCommand(wire.CommandMessage{StepID: step, TimestampNs: time.Now().UnixNano(), Cmd: cmd})
		if err != nil {
			t.Fatalf("EncodeCommand: %v", err)
		}
		if _, err := simSide.Write(frame); err != nil {
			t.Fatalf("write: %v", err)
		}
		tm, err := wire.DecodeTelemetry(simSide)
		if err != nil {
			t.Fatalf("DecodeTelemetry: %v", err)
		}
		if tm.StepID != step {
			t.Fatalf("expected step_id %d, got %d", step, tm.StepID)
		}
		var v struct {
			V float64 `json:"v"`
		}
		_ = json.Unmarshal(tm.Payload, &v)
		if v.V != float64(step)*2 {
			t.Fatalf("step %d: expected echoed*2 = %v, got %v", step, float64(step)*2, v.V)
		}
	}
	simSide.Close()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error on clean EOF: %v", err)
	}
}

func TestRunDropRepliesOmitsSendButLogsNote(t *testing.T) {
	simSide, hwSide := net.Pipe()
	defer simSide.Close()

	dir := t.TempDir()
	logger, err := logcsv.OpenHWLogger(dir)
	if err != nil {
		t.Fatalf("OpenHWLogger: %v", err)
	}
	defer logger.Close()

	handler := func(stepID uint64, cmd json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(map[string]int{})
	}

	done := make(chan error, 1)
	go func() {
		done <- Run(Options{
			Conn:        hwSide,
			Handler:     handler,
			Logger:      logger,
			DropReplies: func(stepID uint64) bool { return true },
		})
	}()

	cmd, _ := json.Marshal(map[string]int{})
	frame, _ := wire.EncodeCommand(wire.CommandMessage{StepID: 7, TimestampNs: time.Now().UnixNano(), Cmd: cmd})
	if _, err := simSide.Write(frame); err != nil {
		t.Fatalf("write: %v", err)
	}

	readErr := make(chan error, 1)
	go func() {
		_, err := wire.DecodeTelemetry(simSide)
		readErr <- err
	}()
	select {
	case err := <-readErr:
		if err == nil {
			t.Fatalf("expected no telemetry frame to arrive when replies are dropped")
		}
	case <-time.After(50 * time.Millisecond):
		// No frame arrived within the window, as expected.
	}

	simSide.Close()
	<-done

	data, err := os.ReadFile(filepath.Join(dir, "act_log.csv"))
	if err != nil {
		t.Fatalf("read act_log.csv: %v", err)
	}
	if !strings.Contains(string(data), "reply_dropped") {
		t.Fatalf("expected a reply_dropped note in act_log.csv, got %q", data)
	}
}

func TestRunExitsCleanOnBadMagic(t *testing.T) {
	simSide, hwSide := net.Pipe()
	defer simSide.Close()

	dir := t.TempDir()
	logger, err := logcsv.OpenHWLogger(dir)
	if err != nil {
		t.Fatalf("OpenHWLogger: %v", err)
	}
	defer logger.Close()

	handler := func(stepID uint64, cmd json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(map[string]int{})
	}

	done := make(chan error, 1)
	go func() { done <- Run(Options{Conn: hwSide, Handler: handler, Logger: logger}) }()

	corrupt := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x00, 0x00, 0x00}
	if _, err := simSide.Write(corrupt); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := <-done; err != nil {
		t.Fatalf("expected clean exit on bad magic, got error: %v", err)
	}
}
