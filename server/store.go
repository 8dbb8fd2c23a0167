package server

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Giacomo117/AutoGuardian/common"
)

var (
	// ErrVehicleExists is returned when creating a vehicle whose id is taken.
	ErrVehicleExists = errors.New("vehicle id already exists")
	// ErrVehicleNotFound is returned for operations on an unknown vehicle id.
	ErrVehicleNotFound = errors.New("vehicle does not exist")
)

// Store keeps the vehicle registry and the accepted alerts. Everything is
// held in memory behind one lock: the store exists to realize the
// corroboration contract, durable persistence is out of scope.
type Store struct {
	mu       sync.RWMutex
	vehicles map[int]common.Vehicle
	updated  map[int]time.Time
	alerts   []common.StoredAlert
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		vehicles: make(map[int]common.Vehicle),
		updated:  make(map[int]time.Time),
	}
}

// CreateVehicle registers a new vehicle. The id must be free.
func (s *Store) CreateVehicle(v common.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[v.ID]; ok {
		return ErrVehicleExists
	}
	s.vehicles[v.ID] = v
	s.updated[v.ID] = time.Now()
	return nil
}

// UpdateVehicle replaces the state of an existing vehicle and refreshes its
// last-update timestamp. The path id wins over whatever id the payload says.
func (s *Store) UpdateVehicle(id int, v common.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[id]; !ok {
		return ErrVehicleNotFound
	}
	v.ID = id
	s.vehicles[id] = v
	s.updated[id] = time.Now()
	return nil
}

// GetVehicle returns one vehicle by id.
func (s *Store) GetVehicle(id int) (common.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[id]
	if !ok {
		return common.Vehicle{}, ErrVehicleNotFound
	}
	return v, nil
}

// ListVehicles returns every vehicle, ordered by id.
func (s *Store) ListVehicles() []common.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// DeleteVehicle removes one vehicle by id.
func (s *Store) DeleteVehicle(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[id]; !ok {
		return ErrVehicleNotFound
	}
	delete(s.vehicles, id)
	delete(s.updated, id)
	return nil
}

// VehiclesInRange returns the vehicles within radiusKm of the reference
// point, excluding excludeID, ordered by id.
func (s *Store) VehiclesInRange(lat, lon float64, excludeID int, radiusKm float64) []common.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vehiclesInRangeLocked(lat, lon, excludeID, radiusKm)
}

// vehiclesInRangeLocked is VehiclesInRange under an already held lock.
func (s *Store) vehiclesInRangeLocked(lat, lon float64, excludeID int, radiusKm float64) []common.Vehicle {
	var inRange []common.Vehicle
	for id, v := range s.vehicles {
		if id == excludeID {
			continue
		}
		if distanceKm(lat, lon, v.Latitude, v.Longitude) <= radiusKm {
			inRange = append(inRange, v)
		}
	}
	sort.Slice(inRange, func(i, j int) bool { return inRange[i].ID < inRange[j].ID })
	return inRange
}

// ListAlerts returns the accepted alerts in insertion order.
func (s *Store) ListAlerts() []common.StoredAlert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]common.StoredAlert, len(s.alerts))
	copy(out, s.alerts)
	return out
}
