// Package logcsv writes the per-step timestamp logs: one append-only
// CSV file per side, header and column order fixed, flushed every
// row, closed on clean shutdown.
package logcsv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// SimStepRecord is one Simulator log row.
type SimStepRecord struct {
	StepID         uint64
	TSimSendNs     int64
	TSimRecvNs     int64
	TActRecvNs     int64
	TActSendNs     int64
	Timeout        bool
	DeadlineMissMs float64
}

// HWStepRecord is one Hardware log row.
type HWStepRecord struct {
	StepID     uint64
	TActRecvNs int64
	TActSendNs int64
	MissingCmd bool
	Note       string
}

var simHeader = []string{"step_id", "t_sim_send_ns", "t_sim_recv_ns", "t_act_recv_ns", "t_act_send_ns", "timeout", "deadline_miss_ms"}

var hwHeader = []string{"step_id", "t_act_recv_ns", "t_act_send_ns", "missing_cmd", "note"}

// SimLogger appends SimStepRecord rows to sim_log.csv.
type SimLogger struct {
	f *os.File
	w *csv.Writer
}

// HWLogger appends HWStepRecord rows to act_log.csv.
type HWLogger struct {
	f *os.File
	w *csv.Writer
}

// OpenSimLogger creates (or truncates) sim_log.csv under dir and writes
// its header.
func OpenSimLogger(dir string) (*SimLogger, error) {
	f, w, err := createWithHeader(dir, "sim_log.csv", simHeader)
	if err != nil {
		return nil, err
	}
	return &SimLogger{f: f, w: w}, nil
}

// OpenHWLogger creates (or truncates) act_log.csv under dir and writes
// its header.
func OpenHWLogger(dir string) (*HWLogger, error) {
	f, w, err := createWithHeader(dir, "act_log.csv", hwHeader)
	if err != nil {
		return nil, err
	}
	return &HWLogger{f: f, w: w}, nil
}

func createWithHeader(dir, name string, header []string) (*os.File, *csv.Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logcsv: mkdir %s: %w", dir, err)
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("logcsv: create %s: %w", name, err)
	}
	w := csv.NewWriter(bufio.NewWriter(f))
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("logcsv: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("logcsv: flush header: %w", err)
	}
	return f, w, nil
}

// Append writes one row and flushes it immediately, so a killed process
// loses at most the in-flight row.
func (l *SimLogger) Append(r SimStepRecord) error {
	row := []string{
		fmt.Sprintf("%d", r.StepID),
		fmt.Sprintf("%d", r.TSimSendNs),
		fmt.Sprintf("%d", r.TSimRecvNs),
		fmt.Sprintf("%d", r.TActRecvNs),
		fmt.Sprintf("%d", r.TActSendNs),
		boolStr(r.Timeout),
		fmt.Sprintf("%.6f", r.DeadlineMissMs),
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("logcsv: write row: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the underlying file.
func (l *SimLogger) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}

// Append writes one row and flushes it immediately.
func (l *HWLogger) Append(r HWStepRecord) error {
	row := []string{
		fmt.Sprintf("%d", r.StepID),
		fmt.Sprintf("%d", r.TActRecvNs),
		fmt.Sprintf("%d", r.TActSendNs),
		boolStr(r.MissingCmd),
		r.Note,
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("logcsv: write row: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the underlying file.
func (l *HWLogger) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		_ = l.f.Close()
		return err
	}
	return l.f.Close()
}

func boolStr(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
