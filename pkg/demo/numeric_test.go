package demo

import (
	"encoding/json"
	"testing"
)

func TestCommandProducerScalesByStep(t *testing.T) {
	cmd, err := CommandProducer(5)
	if err != nil {
		t.Fatalf("CommandProducer: %v", err)
	}
	var body numericBody
	if err := json.Unmarshal(cmd, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.V != 0.5 {
		t.Fatalf("expected v=0.5, got %v", body.V)
	}
}

func TestCommandHandlerDoublesValue(t *testing.T) {
	cmd, _ := json.Marshal(numericBody{V: 3})
	reply, err := CommandHandler(0, cmd)
	if err != nil {
		t.Fatalf("CommandHandler: %v", err)
	}
	var out numericBody
	_ = json.Unmarshal(reply, &out)
	if out.V != 6 {
		t.Fatalf("expected v=6, got %v", out.V)
	}
}

func TestPlantUpdaterTracksReply(t *testing.T) {
	var p Plant
	telemetry, _ := json.Marshal(numericBody{V: 8})
	if err := p.Updater(0, nil, true, telemetry); err != nil {
		t.Fatalf("Updater: %v", err)
	}
	if p.LastV != 8 || p.LastTimeout {
		t.Fatalf("unexpected plant state: %+v", p)
	}
}

func TestPlantUpdaterZeroesOnTimeout(t *testing.T) {
	var p Plant
	p.LastV = 42
	if err := p.Updater(1, json.RawMessage("{}"), false, nil); err != nil {
		t.Fatalf("Updater: %v", err)
	}
	if p.LastV != 0 || !p.LastTimeout {
		t.Fatalf("expected zeroed value and timeout flag set, got %+v", p)
	}
}
