package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// NeighborClient resolves the current neighbor set of a vehicle: the ids of
// every vehicle within the store's configured radius, excluding the vehicle
// itself. The set is computed fresh per call since positions are updated
// continuously.
type NeighborClient struct {
	url    string
	client *http.Client
}

// NewNeighborClient creates a neighbor lookup client from the shared
// collaborator configuration.
func NewNeighborClient(cfg Config) *NeighborClient {
	return &NeighborClient{
		url:    cfg.endpointURL(cfg.NeighborsEndpoint),
		client: cfg.httpClient(),
	}
}

// Neighbors returns the neighbor ids of the given vehicle. An unknown
// vehicle id is an error; an empty neighborhood is not.
func (c *NeighborClient) Neighbors(id int) ([]int, error) {
	resp, err := c.client.Get(fmt.Sprintf("%s%d/", c.url, id))
	if err != nil {
		return nil, fmt.Errorf("GET %s%d/: %v", c.url, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("neighbors of vehicle %d: unexpected status %d", id, resp.StatusCode)
	}

	var payload struct {
		NeighborIDs []int `json:"neighboring_vehicle_ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode neighbors of vehicle %d: %v", id, err)
	}
	return payload.NeighborIDs, nil
}
