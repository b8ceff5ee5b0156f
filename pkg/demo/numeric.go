// Package demo provides the reference numeric command/telemetry body
// used by the happy-path scenario: the Simulator sends {"v": step_id *
// 0.1} and the Hardware echoes {"v": received_v * 2}.
package demo

import (
	"encoding/json"
	"fmt"
)

// numericBody is the wire shape of both the command and the telemetry
// payload in this scenario.
type numericBody struct {
	V float64 `json:"v"`
}

// CommandProducer implements plugin.CommandProducer for the numeric
// scenario: v = step_id * 0.1.
func CommandProducer(stepID uint64) (json.RawMessage, error) {
	return json.Marshal(numericBody{V: float64(stepID) * 0.1})
}

// CommandHandler implements plugin.CommandHandler for the numeric
// scenario: echoes v doubled.
func CommandHandler(stepID uint64, cmd json.RawMessage) (json.RawMessage, error) {
	var in numericBody
	if err := json.Unmarshal(cmd, &in); err != nil {
		return nil, fmt.Errorf("demo: decode command: %w", err)
	}
	return json.Marshal(numericBody{V: in.V * 2})
}

// Plant tracks the most recently observed numeric value, standing in
// for the controlled physical process on the Simulator side.
type Plant struct {
	LastV       float64
	LastTimeout bool
}

// Updater implements plugin.PlantUpdater for the numeric scenario: it
// records the telemetry payload's v (or 0 on timeout; the neutral
// command passed in on timeout is not read).
func (p *Plant) Updater(stepID uint64, cmd json.RawMessage, gotReply bool, telemetry json.RawMessage) error {
	p.LastTimeout = !gotReply
	if !gotReply || len(telemetry) == 0 {
		p.LastV = 0
		return nil
	}
	var out numericBody
	if err := json.Unmarshal(telemetry, &out); err != nil {
		return fmt.Errorf("demo: decode telemetry: %w", err)
	}
	p.LastV = out.V
	return nil
}
