package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Config represents the remote store connection settings shared by the
// collaborator clients.
type Config struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	VehiclesEndpoint  string        `mapstructure:"vehicles_endpoint"`
	AlertsEndpoint    string        `mapstructure:"alerts_endpoint"`
	NeighborsEndpoint string        `mapstructure:"neighbors_endpoint"`
	Timeout           time.Duration `mapstructure:"timeout"`

	// Field sets the server declares as required on create/update. A payload
	// with a mismatched field set fails fast before any network call.
	VehicleFields []string `mapstructure:"vehicle_fields"`
	AlertFields   []string `mapstructure:"alert_fields"`
}

// DefaultConfig returns the default collaborator configuration.
func DefaultConfig() Config {
	return Config{
		Host:              "localhost",
		Port:              8000,
		VehiclesEndpoint:  "api/vehicles/",
		AlertsEndpoint:    "api/alerts/",
		NeighborsEndpoint: "api/neighboring-vehicles/",
		Timeout:           5 * time.Second,
		VehicleFields:     []string{"id", "latitude", "longitude", "smoke", "temperature", "humidity"},
		AlertFields:       []string{"sender", "latitude", "longitude", "smoke", "temperature", "humidity", "s", "t", "u"},
	}
}

// endpointURL builds the base URL for one endpoint.
func (c Config) endpointURL(endpoint string) string {
	return fmt.Sprintf("http://%s:%d/%s", c.Host, c.Port, endpoint)
}

// httpClient returns a client honoring the configured timeout.
func (c Config) httpClient() *http.Client {
	return &http.Client{Timeout: c.Timeout}
}

// ErrFieldMismatch is returned when a payload does not carry exactly the
// field set the server declares for the endpoint.
var ErrFieldMismatch = errors.New("payload field set does not match the server-declared fields")

// encodePayload marshals v, verifies its JSON field set against the required
// one and returns the request body. The check runs before any network call.
func encodePayload(v any, required []string) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("payload is not an object: %v", err)
	}

	if len(fields) != len(required) {
		return nil, fmt.Errorf("%w: got %d fields, want %v", ErrFieldMismatch, len(fields), required)
	}
	for _, f := range required {
		if _, ok := fields[f]; !ok {
			return nil, fmt.Errorf("%w: missing %q, want %v", ErrFieldMismatch, f, required)
		}
	}

	return body, nil
}

// postJSON issues a POST with a JSON body and returns the response. The
// caller owns closing the body.
func postJSON(client *http.Client, url string, body []byte) (*http.Response, error) {
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("POST %s: %v", url, err)
	}
	return resp, nil
}
