package ledger

import (
	"encoding/json"
	"fmt"
)

// Params contains runtime toggles stored on-chain under PARAMS.
type Params struct {
	EmitEvents bool `json:"EMIT_EVENTS"` // Default true: emit one event per mutation

	// Default false: updates and compliance checks on an unregistered identity
	// proceed on an implicit zero record. When true they fail with
	// ErrUnknownIdentity.
	RequireRegistration bool `json:"REQUIRE_REGISTRATION"`
}

// DefaultParams returns the values used until SetParams is called.
func DefaultParams() Params {
	return Params{EmitEvents: true, RequireRegistration: false}
}

// Params reads the runtime parameters. Defaults apply until SetParams runs;
// an unreadable stored value is an error, never a silent reset.
func (s *State) Params() (Params, error) {
	p := DefaultParams()
	raw, err := s.host.GetState(keyParams)
	if err != nil {
		return p, fmt.Errorf("get params: %w", err)
	}
	if raw == nil {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return DefaultParams(), fmt.Errorf("%w: %v", ErrCorruptParams, err)
	}
	return p, nil
}

// mergeParams overlays the keys present in updJSON onto cur.
func mergeParams(cur Params, updJSON string) (Params, []byte, error) {
	var upd map[string]any
	if err := json.Unmarshal([]byte(updJSON), &upd); err != nil {
		return cur, nil, fmt.Errorf("bad params json: %w", err)
	}
	js, _ := json.Marshal(cur)
	var merged map[string]any
	_ = json.Unmarshal(js, &merged)
	for k, v := range upd {
		if _, ok := merged[k]; !ok {
			return cur, nil, fmt.Errorf("unknown param %q", k)
		}
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return cur, nil, err
	}
	var p Params
	if err := json.Unmarshal(out, &p); err != nil {
		return cur, nil, fmt.Errorf("bad params json: %w", err)
	}
	canon, _ := json.Marshal(p)
	return p, canon, nil
}
