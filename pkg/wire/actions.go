package wire

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dcsturman/callisto-sub000/pkg/core"
)

// Action item tags. Jump and JamMissiles travel as bare strings, the rest
// as single-key objects.
const (
	itemJump            = "Jump"
	itemJamMissiles     = "JamMissiles"
	itemFireAction      = "FireAction"
	itemDeleteFire      = "DeleteFireAction"
	itemPointDefense    = "PointDefenseAction"
	itemSensorLock      = "SensorLock"
	itemBreakSensorLock = "BreakSensorLock"
	itemJamComms        = "JamComms"
)

// ActorActions is one entry of a ModifyActions payload. On the wire it is
// the two-element array ["name", [items...]].
type ActorActions struct {
	Name  string
	Items []json.RawMessage
}

// MarshalJSON encodes the entry as its positional pair form.
func (a ActorActions) MarshalJSON() ([]byte, error) {
	items := a.Items
	if items == nil {
		items = []json.RawMessage{}
	}
	return json.Marshal([2]any{a.Name, items})
}

// UnmarshalJSON decodes the positional pair form.
func (a *ActorActions) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("actor entry is not a pair: %w", err)
	}
	if err := json.Unmarshal(pair[0], &a.Name); err != nil {
		return fmt.Errorf("actor name: %w", err)
	}
	a.Items = nil
	if len(pair[1]) > 0 {
		if err := json.Unmarshal(pair[1], &a.Items); err != nil {
			return fmt.Errorf("actor items: %w", err)
		}
	}
	return nil
}

// EncodeActions flattens the queued intents into the ModifyActions wire
// payload. Actors with no queued intent are omitted entirely.
func EncodeActions(actions core.ActionMap) ([]ActorActions, error) {
	out := make([]ActorActions, 0, len(actions))
	for name, acts := range actions {
		if acts.Empty() {
			continue
		}
		entry, err := EncodeActorActions(name, acts)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// EncodeActorActions builds the wire entry for a single actor. An actor
// with nothing queued yields an explicit empty item list, which tells the
// server to clear that actor's accepted actions.
func EncodeActorActions(name string, acts *core.ShipActions) (ActorActions, error) {
	items, err := encodeItems(acts)
	if err != nil {
		return ActorActions{}, fmt.Errorf("encode actions for %s: %w", name, err)
	}
	return ActorActions{Name: name, Items: items}, nil
}

func encodeItems(acts *core.ShipActions) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if acts == nil {
		return items, nil
	}

	appendTagged := func(tag string, payload any) error {
		data, err := EncodeTagged(tag, payload)
		if err != nil {
			return err
		}
		items = append(items, data)
		return nil
	}
	appendBare := func(tag string) error {
		data, err := EncodeBare(tag)
		if err != nil {
			return err
		}
		items = append(items, data)
		return nil
	}

	switch acts.Sensor.Action {
	case core.SensorNone:
	case core.JamMissiles:
		if err := appendBare(itemJamMissiles); err != nil {
			return nil, err
		}
	case core.SensorLock:
		if err := appendTagged(itemSensorLock, acts.Sensor.Target); err != nil {
			return nil, err
		}
	case core.BreakSensorLock:
		if err := appendTagged(itemBreakSensorLock, acts.Sensor.Target); err != nil {
			return nil, err
		}
	case core.JamComms:
		if err := appendTagged(itemJamComms, acts.Sensor.Target); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown sensor op %q", acts.Sensor.Action)
	}

	for _, f := range acts.Fire {
		if err := appendTagged(itemFireAction, f); err != nil {
			return nil, err
		}
	}
	for _, u := range acts.Unfire {
		if err := appendTagged(itemDeleteFire, u); err != nil {
			return nil, err
		}
	}
	for _, pd := range acts.PointDefense {
		if err := appendTagged(itemPointDefense, pd); err != nil {
			return nil, err
		}
	}
	if acts.Jump {
		if err := appendBare(itemJump); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// DecodeActions rebuilds queued intents from a ModifyActions-shaped
// payload, such as the server's action echo inside a snapshot. Unknown
// item tags are logged and skipped so that protocol additions never break
// older clients.
func DecodeActions(data []byte) (core.ActionMap, error) {
	var entries []ActorActions
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode action list: %w", err)
	}

	out := make(core.ActionMap, len(entries))
	for _, entry := range entries {
		acts := &core.ShipActions{}
		for _, item := range entry.Items {
			if err := decodeItem(item, acts); err != nil {
				return nil, fmt.Errorf("actions for %s: %w", entry.Name, err)
			}
		}
		out[entry.Name] = acts
	}
	return out, nil
}

func decodeItem(item json.RawMessage, acts *core.ShipActions) error {
	tag, payload, err := DecodeFrame(item)
	if err != nil {
		return err
	}

	switch tag {
	case itemJump:
		acts.Jump = true
	case itemJamMissiles:
		acts.Sensor = core.SensorState{Action: core.JamMissiles}
	case itemSensorLock, itemBreakSensorLock, itemJamComms:
		var target string
		if err := json.Unmarshal(payload, &target); err != nil {
			return fmt.Errorf("%s target: %w", tag, err)
		}
		acts.Sensor = core.SensorState{Action: core.SensorOp(tag), Target: target}
	case itemFireAction:
		var f core.FireAction
		if err := json.Unmarshal(payload, &f); err != nil {
			return fmt.Errorf("fire action: %w", err)
		}
		acts.Fire = append(acts.Fire, f)
	case itemDeleteFire:
		var u core.UnfireAction
		if err := json.Unmarshal(payload, &u); err != nil {
			return fmt.Errorf("delete fire action: %w", err)
		}
		acts.Unfire = append(acts.Unfire, u)
	case itemPointDefense:
		var pd core.PointDefenseAction
		if err := json.Unmarshal(payload, &pd); err != nil {
			return fmt.Errorf("point defense action: %w", err)
		}
		acts.PointDefense = append(acts.PointDefense, pd)
	default:
		slog.Debug("skipping unknown action item", "tag", tag)
	}
	return nil
}
