// Package plugin defines the injectable callback surface the core
// treats as opaque: command production, plant update, and command
// handling. The core never interprets payload contents beyond the
// list-vs-map shape dispatch needed to derive a neutral value on
// timeout.
package plugin

import (
	"bytes"
	"encoding/json"
)

// CommandProducer returns the command payload for a given step.
type CommandProducer func(stepID uint64) (json.RawMessage, error)

// PlantUpdater advances the plant's internal state given either the
// real command payload (if telemetry arrived in time) or a
// shape-matching neutral value derived from it (on timeout).
type PlantUpdater func(stepID uint64, cmd json.RawMessage, gotReply bool, telemetry json.RawMessage) error

// CommandHandler computes the Hardware's response payload for a
// received command.
type CommandHandler func(stepID uint64, cmd json.RawMessage) (json.RawMessage, error)

// Callbacks bundles the three injectable capabilities. It plays the
// role of a small capability object: any of the three members may be
// nil in a context that doesn't need it (e.g. Hardware only needs
// Handler).
type Callbacks struct {
	Producer CommandProducer
	Updater  PlantUpdater
	Handler  CommandHandler
}

// ZeroLike derives the neutral command of matching shape used when a
// step times out: a list becomes a same-length list of zeros, a map
// becomes the same keys with zero values. Any other JSON shape (scalar,
// null, or malformed) degrades to a JSON null, since there is no
// well-defined "zero" for it.
func ZeroLike(cmd json.RawMessage) json.RawMessage {
	if len(cmd) == 0 || bytes.Equal(bytes.TrimSpace(cmd), []byte("null")) {
		return json.RawMessage("null")
	}
	var asList []json.Number
	if err := unmarshalNumberList(cmd, &asList); err == nil {
		zeros := make([]float64, len(asList))
		out, _ := json.Marshal(zeros)
		return out
	}
	var asMap map[string]any
	if err := unmarshalNumberMap(cmd, &asMap); err == nil {
		zeroed := make(map[string]float64, len(asMap))
		for k := range asMap {
			zeroed[k] = 0
		}
		out, _ := json.Marshal(zeroed)
		return out
	}
	return json.RawMessage("null")
}

func unmarshalNumberList(data json.RawMessage, out *[]json.Number) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

func unmarshalNumberMap(data json.RawMessage, out *map[string]any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}
