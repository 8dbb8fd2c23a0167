package frame

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/Giacomo117/AutoGuardian/common"
)

// Frame is one decoded telemetry message from the onboard microcontroller:
// the vehicle state plus three hazard flags computed upstream (a flag is set
// when the corresponding reading crossed its threshold).
type Frame struct {
	ID          int     `mapstructure:"id"`
	Latitude    float64 `mapstructure:"latitude"`
	Longitude   float64 `mapstructure:"longitude"`
	Smoke       float64 `mapstructure:"smoke"`
	Temperature float64 `mapstructure:"temperature"`
	Humidity    float64 `mapstructure:"humidity"`
	SmokeFlag   bool    `mapstructure:"s"`
	TempFlag    bool    `mapstructure:"t"`
	HumFlag     bool    `mapstructure:"u"`
}

// DecodeError reports a frame body that could not be parsed. The frame is
// dropped and the stream continues at the next sentinel pair.
type DecodeError struct {
	Body   []byte
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed frame body %q: %s", e.Body, e.Reason)
}

// requiredKeys is the full schema of a frame body. A body missing any of
// these is rejected before the typed decode.
var requiredKeys = []string{
	"id", "latitude", "longitude",
	"smoke", "temperature", "humidity",
	"s", "t", "u",
}

// Parse decodes a frame body into a typed Frame. The body is a JSON object;
// the microcontroller sends the hazard flags as 0/1, so the decode is weakly
// typed to map them onto booleans. Any structural problem (not an object,
// missing key, wrong value type) yields a *DecodeError.
func Parse(body []byte) (*Frame, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &DecodeError{Body: body, Reason: err.Error()}
	}

	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			return nil, &DecodeError{Body: body, Reason: "missing field " + key}
		}
	}

	var f Frame
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &f,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build frame decoder: %v", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, &DecodeError{Body: body, Reason: err.Error()}
	}

	return &f, nil
}

// HazardTriggered reports whether at least one of the three threshold flags
// is set. Any single exceeded threshold is sufficient to attempt an alert.
func (f *Frame) HazardTriggered() bool {
	return f.SmokeFlag || f.TempFlag || f.HumFlag
}

// Vehicle returns the registry payload for this frame. The hazard flags are
// transport-local indicators and are not part of the vehicle record.
func (f *Frame) Vehicle() common.Vehicle {
	return common.Vehicle{
		ID:          f.ID,
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		Smoke:       f.Smoke,
		Temperature: f.Temperature,
		Humidity:    f.Humidity,
	}
}

// AlertCandidate returns the alert payload for this frame, with the frame's
// vehicle id as the sender.
func (f *Frame) AlertCandidate() common.Alert {
	return common.Alert{
		Sender:      f.ID,
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		Smoke:       f.Smoke,
		Temperature: f.Temperature,
		Humidity:    f.Humidity,
		SmokeFlag:   f.SmokeFlag,
		TempFlag:    f.TempFlag,
		HumFlag:     f.HumFlag,
	}
}
