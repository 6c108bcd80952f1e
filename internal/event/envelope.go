package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Envelope is the wire wrapper carrying one telemetry event through the feed.
type Envelope struct {
	Type     string          `json:"type"`
	Datetime string          `json:"datetime"`
	Payload  json.RawMessage `json:"payload"`
}

// ErrMalformed marks envelopes that can never decode: bad JSON, unknown
// type, or a payload missing a required field. Consumers skip these rather
// than retry them.
var ErrMalformed = errors.New("malformed envelope")

// EncodeEnvelope wraps an event in its wire envelope, stamped with the
// emission time.
func EncodeEnvelope(ev Event, emittedAt time.Time) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	env := Envelope{
		Type:     ev.Kind().String(),
		Datetime: FormatTimestamp(emittedAt),
		Payload:  payload,
	}
	return json.Marshal(env)
}

// DecodeEnvelope parses a wire message into its typed event. The payload
// timestamp is normalized, optional fields receive their defaults, and a
// missing device_id or trace_id fails the decode with ErrMalformed.
func DecodeEnvelope(b []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	kind, ok := KindFromType(env.Type)
	if !ok {
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}

	switch kind {
	case KindLocation:
		var loc Location
		if err := json.Unmarshal(env.Payload, &loc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := normalizeBase(&loc.Base); err != nil {
			return nil, err
		}
		return loc, nil
	case KindAlert:
		var al Alert
		if err := json.Unmarshal(env.Payload, &al); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := normalizeBase(&al.Base); err != nil {
			return nil, err
		}
		if al.AlertDesc == "" {
			al.AlertDesc = DefaultAlertDesc
		}
		return al, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrMalformed, kind)
	}
}

func normalizeBase(b *Base) error {
	if b.DeviceID == "" {
		return fmt.Errorf("%w: missing device_id", ErrMalformed)
	}
	if b.TraceID == 0 {
		return fmt.Errorf("%w: missing trace_id", ErrMalformed)
	}
	if b.LocationName == "" {
		b.LocationName = DefaultLocationName
	}
	b.Timestamp = NormalizeTimestamp(b.Timestamp)
	return nil
}
