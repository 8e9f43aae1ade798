// Package wire implements the tagged-union frame codec used on the
// persistent connection to the simulation server. A frame is either a bare
// JSON string ("Ping") or an object with exactly one key, where the key is
// the variant tag and the value its payload. Classification is always by
// key presence, never by position.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Outbound frame tags.
const (
	TagEntitiesRequest       = "EntitiesRequest"
	TagDesignTemplateRequest = "DesignTemplateRequest"
	TagReset                 = "Reset"
	TagExit                  = "Exit"
	TagLogout                = "Logout"
	TagPing                  = "Ping"
	TagUpdate                = "Update"

	TagLogin           = "Login"
	TagAddShip         = "AddShip"
	TagSetPilotActions = "SetPilotActions"
	TagRemoveEntity    = "RemoveEntity"
	TagSetPlan         = "SetPlan"
	TagModifyActions   = "ModifyActions"
	TagComputePath     = "ComputePath"
	TagSetRole         = "SetRole"
	TagJoinScenario    = "JoinScenario"
	TagCreateScenario  = "CreateScenario"
)

// Inbound frame tags.
const (
	TagPong                   = "Pong"
	TagPleaseLogin            = "PleaseLogin"
	TagAuthResponse           = "AuthResponse"
	TagDesignTemplateResponse = "DesignTemplateResponse"
	TagEntityResponse         = "EntityResponse"
	TagFlightPath             = "FlightPath"
	TagEffects                = "Effects"
	TagUsers                  = "Users"
	TagScenarios              = "Scenarios"
	TagJoinedScenario         = "JoinedScenario"
	TagSimpleMsg              = "SimpleMsg"
	TagError                  = "Error"
)

// EncodeBare encodes a payload-less frame as a bare JSON string.
func EncodeBare(tag string) ([]byte, error) {
	return json.Marshal(tag)
}

// EncodeTagged encodes a frame as a single-key object {tag: payload}.
func EncodeTagged(tag string, payload any) ([]byte, error) {
	data, err := json.Marshal(map[string]any{tag: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", tag, err)
	}
	return data, nil
}

// DecodeFrame splits a raw frame into its tag and payload. Bare-string
// frames yield a nil payload. Objects must carry exactly one key.
func DecodeFrame(data []byte) (tag string, payload json.RawMessage, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "", nil, fmt.Errorf("empty frame")
	}

	if trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &tag); err != nil {
			return "", nil, fmt.Errorf("malformed bare frame: %w", err)
		}
		return tag, nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return "", nil, fmt.Errorf("malformed frame: %w", err)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("frame must have exactly one tag, got %d", len(obj))
	}
	for k, v := range obj {
		return k, v, nil
	}
	return "", nil, fmt.Errorf("unreachable")
}
