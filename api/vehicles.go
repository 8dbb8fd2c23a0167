package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Giacomo117/AutoGuardian/common"
)

// VehicleClient talks to the vehicle registry endpoint of the remote store.
type VehicleClient struct {
	url    string
	fields []string
	client *http.Client
}

// NewVehicleClient creates a vehicle registry client from the shared
// collaborator configuration.
func NewVehicleClient(cfg Config) *VehicleClient {
	return &VehicleClient{
		url:    cfg.endpointURL(cfg.VehiclesEndpoint),
		fields: cfg.VehicleFields,
		client: cfg.httpClient(),
	}
}

// Create registers a new vehicle record. The registry answers 201 on
// success.
func (c *VehicleClient) Create(v common.Vehicle) error {
	body, err := encodePayload(v, c.fields)
	if err != nil {
		return err
	}

	resp, err := postJSON(c.client, c.url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("create vehicle %d: unexpected status %d", v.ID, resp.StatusCode)
	}
	return nil
}

// Update upserts the vehicle record keyed by id. The registry answers 200 on
// success.
func (c *VehicleClient) Update(id int, v common.Vehicle) error {
	body, err := encodePayload(v, c.fields)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s%d/", c.url, id), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build update request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("PUT %s%d/: %v", c.url, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update vehicle %d: unexpected status %d", id, resp.StatusCode)
	}
	return nil
}

// Get retrieves one vehicle record by id.
func (c *VehicleClient) Get(id int) (*common.Vehicle, error) {
	resp, err := c.client.Get(fmt.Sprintf("%s%d/", c.url, id))
	if err != nil {
		return nil, fmt.Errorf("GET %s%d/: %v", c.url, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get vehicle %d: unexpected status %d", id, resp.StatusCode)
	}

	var v common.Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode vehicle %d: %v", id, err)
	}
	return &v, nil
}

// List retrieves every vehicle record the registry holds.
func (c *VehicleClient) List() ([]common.Vehicle, error) {
	resp, err := c.client.Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %v", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list vehicles: unexpected status %d", resp.StatusCode)
	}

	var vehicles []common.Vehicle
	if err := json.NewDecoder(resp.Body).Decode(&vehicles); err != nil {
		return nil, fmt.Errorf("decode vehicle list: %v", err)
	}
	return vehicles, nil
}

// Delete removes the vehicle record keyed by id. The registry answers 204 on
// success.
func (c *VehicleClient) Delete(id int) error {
	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s%d/", c.url, id), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("DELETE %s%d/: %v", c.url, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete vehicle %d: unexpected status %d", id, resp.StatusCode)
	}
	return nil
}
