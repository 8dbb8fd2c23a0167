package api

import (
	"fmt"
	"net/http"

	"github.com/Giacomo117/AutoGuardian/common"
)

// AlertClient submits alert candidates to the remote alert store. The store
// owns the corroboration decision: it either persists the candidate or
// suppresses it as a shared ambient condition.
type AlertClient struct {
	url    string
	fields []string
	client *http.Client
}

// NewAlertClient creates an alert store client from the shared collaborator
// configuration.
func NewAlertClient(cfg Config) *AlertClient {
	return &AlertClient{
		url:    cfg.endpointURL(cfg.AlertsEndpoint),
		fields: cfg.AlertFields,
		client: cfg.httpClient(),
	}
}

// Submit sends one alert candidate and returns the store's verdict:
// 201 means the alert was accepted and persisted, 200 means a neighbor
// reported similar readings and the alert was suppressed. Any other status
// is an error. A candidate is submitted once and never retried.
func (c *AlertClient) Submit(a common.Alert) (accepted bool, err error) {
	body, err := encodePayload(a, c.fields)
	if err != nil {
		return false, err
	}

	resp, err := postJSON(c.client, c.url, body)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return true, nil
	case http.StatusOK:
		return false, nil
	default:
		return false, fmt.Errorf("submit alert from %d: unexpected status %d", a.Sender, resp.StatusCode)
	}
}
