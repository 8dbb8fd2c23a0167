package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giacomo117/AutoGuardian/common"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ThresholdPct = 5
	srv := New(cfg)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func postJSONBody(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func doRequest(t *testing.T, method, url string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestVehicleEndpoints(t *testing.T) {
	_, ts := testServer(t)
	v := common.Vehicle{ID: 3, Latitude: 44.5, Longitude: 11.3, Smoke: 100, Temperature: 50, Humidity: 40}

	resp := postJSONBody(t, ts.URL+"/api/vehicles/", v)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSONBody(t, ts.URL+"/api/vehicles/", v)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "Duplicate id is rejected")

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/vehicles/3/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var got common.Vehicle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, v, got)

	v.Temperature = 60
	body, _ := json.Marshal(v)
	resp = doRequest(t, http.MethodPut, ts.URL+"/api/vehicles/3/", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodPut, ts.URL+"/api/vehicles/42/", body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/vehicles/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list []common.Vehicle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)
	assert.Equal(t, 60.0, list[0].Temperature)

	resp = doRequest(t, http.MethodDelete, ts.URL+"/api/vehicles/3/", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, http.MethodDelete, ts.URL+"/api/vehicles/3/", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/vehicles/3/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateVehicleBadJSON(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/vehicles/", "application/json", bytes.NewReader([]byte("not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAlertEndpointAcceptAndSuppress(t *testing.T) {
	srv, ts := testServer(t)
	require.NoError(t, srv.Store().CreateVehicle(common.Vehicle{
		ID: 3, Latitude: 44.5, Longitude: 11.3, Smoke: 100, Temperature: 50,
	}))
	require.NoError(t, srv.Store().CreateVehicle(common.Vehicle{
		ID: 5, Latitude: 44.52, Longitude: 11.3, Smoke: 900, Temperature: 900,
	}))

	alert := common.Alert{
		Sender: 3, Latitude: 44.5, Longitude: 11.3,
		Smoke: 100, Temperature: 50, Humidity: 40,
		SmokeFlag: true,
	}

	// Neighbor readings diverge: accepted, vehicle 5 becomes a receiver.
	resp := postJSONBody(t, ts.URL+"/api/alerts/", alert)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/alerts/", nil)
	var alerts []common.StoredAlert
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, []int{5}, alerts[0].Receivers)

	// Make the neighbor's smoke similar (2% off, threshold 5%): suppressed.
	require.NoError(t, srv.Store().UpdateVehicle(5, common.Vehicle{
		ID: 5, Latitude: 44.52, Longitude: 11.3, Smoke: 102, Temperature: 900,
	}))
	resp = postJSONBody(t, ts.URL+"/api/alerts/", alert)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/alerts/", nil)
	alerts = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&alerts))
	assert.Len(t, alerts, 1, "The suppressed alert was not persisted")
}

func TestAlertEndpointRejectsUnknownSender(t *testing.T) {
	_, ts := testServer(t)

	resp := postJSONBody(t, ts.URL+"/api/alerts/", common.Alert{Sender: 42})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNeighborsEndpoint(t *testing.T) {
	srv, ts := testServer(t)
	require.NoError(t, srv.Store().CreateVehicle(common.Vehicle{ID: 1, Latitude: 44.5, Longitude: 11.3}))
	require.NoError(t, srv.Store().CreateVehicle(common.Vehicle{ID: 5, Latitude: 44.52, Longitude: 11.3}))
	require.NoError(t, srv.Store().CreateVehicle(common.Vehicle{ID: 9, Latitude: 44.48, Longitude: 11.3}))
	require.NoError(t, srv.Store().CreateVehicle(common.Vehicle{ID: 12, Latitude: 44.7, Longitude: 11.3}))

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/neighboring-vehicles/1/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		IDs []int `json:"neighboring_vehicle_ids"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, []int{5, 9}, payload.IDs)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/neighboring-vehicles/42/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNeighborsEndpointEmptyNeighborhood(t *testing.T) {
	srv, ts := testServer(t)
	require.NoError(t, srv.Store().CreateVehicle(common.Vehicle{ID: 1, Latitude: 44.5, Longitude: 11.3}))

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/neighboring-vehicles/1/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		IDs []int `json:"neighboring_vehicle_ids"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.NotNil(t, payload.IDs)
	assert.Empty(t, payload.IDs)
}
