package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Giacomo117/AutoGuardian/common"
)

// Config represents the store server configuration. RadiusKm bounds both
// corroboration and the receiver/neighbor sets; ThresholdPct is the maximum
// percent difference at which a neighbor reading still counts as similar.
type Config struct {
	ListenAddr   string  `mapstructure:"listen_addr"`
	RadiusKm     float64 `mapstructure:"radius_km"`
	ThresholdPct float64 `mapstructure:"similarity_threshold_pct"`
}

// DefaultConfig returns the default store server configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":8000",
		RadiusKm:     5,
		ThresholdPct: 0,
	}
}

// Server exposes the vehicle registry, the alert store and the neighbor
// lookup over HTTP.
type Server struct {
	config Config
	store  *Store
}

// New creates a store server with an empty store.
func New(config Config) *Server {
	return &Server{
		config: config,
		store:  NewStore(),
	}
}

// Store exposes the underlying store, mainly to seed test fixtures.
func (s *Server) Store() *Store {
	return s.store
}

// Router builds the HTTP route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/vehicles/", s.handleListVehicles).Methods(http.MethodGet)
	r.HandleFunc("/api/vehicles/", s.handleCreateVehicle).Methods(http.MethodPost)
	r.HandleFunc("/api/vehicles/{id:[0-9]+}/", s.handleGetVehicle).Methods(http.MethodGet)
	r.HandleFunc("/api/vehicles/{id:[0-9]+}/", s.handleUpdateVehicle).Methods(http.MethodPut)
	r.HandleFunc("/api/vehicles/{id:[0-9]+}/", s.handleDeleteVehicle).Methods(http.MethodDelete)

	r.HandleFunc("/api/alerts/", s.handleListAlerts).Methods(http.MethodGet)
	r.HandleFunc("/api/alerts/", s.handleSubmitAlert).Methods(http.MethodPost)

	r.HandleFunc("/api/neighboring-vehicles/{id:[0-9]+}/", s.handleNeighbors).Methods(http.MethodGet)

	return r
}

// ListenAndServe serves the API on the configured address.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.config.ListenAddr).Msg("Store server listening")
	return http.ListenAndServe(s.config.ListenAddr, s.Router())
}

// pathID extracts the {id} route variable.
func pathID(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListVehicles())
}

func (s *Server) handleCreateVehicle(w http.ResponseWriter, r *http.Request) {
	var v common.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := s.store.CreateVehicle(v); err != nil {
		log.Warn().Err(err).Int("vehicle", v.ID).Msg("Vehicle create rejected")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	log.Info().Int("vehicle", v.ID).Msg("Vehicle created")
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.GetVehicle(pathID(r))
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleUpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var v common.Vehicle
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	id := pathID(r)
	if err := s.store.UpdateVehicle(id, v); err != nil {
		if errors.Is(err, ErrVehicleNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteVehicle(pathID(r)); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListAlerts())
}

// handleSubmitAlert runs the corroboration gate: 201 when the alert is
// accepted and persisted, 200 when a neighbor reports similar values and
// the alert is suppressed, 400 when the candidate is invalid.
func (s *Server) handleSubmitAlert(w http.ResponseWriter, r *http.Request) {
	var a common.Alert
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	accepted, receivers, err := s.store.SubmitAlert(a, s.config.RadiusKm, s.config.ThresholdPct)
	if err != nil {
		log.Warn().Err(err).Int("sender", a.Sender).Msg("Alert rejected")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if !accepted {
		log.Info().Int("sender", a.Sender).Msg("Alert suppressed by corroboration")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Neighboring vehicles with similar values found. Alert not created."))
		return
	}

	log.Info().Int("sender", a.Sender).Ints("receivers", receivers).Msg("Alert accepted")
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	v, err := s.store.GetVehicle(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Vehicle does not exist."})
		return
	}

	ids := []int{}
	for _, n := range s.store.VehiclesInRange(v.Latitude, v.Longitude, id, s.config.RadiusKm) {
		ids = append(ids, n.ID)
	}
	writeJSON(w, http.StatusOK, map[string][]int{"neighboring_vehicle_ids": ids})
}
