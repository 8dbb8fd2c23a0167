package server

import (
	"math"
	"time"

	"github.com/Giacomo117/AutoGuardian/common"
)

// similarReading reports whether a neighbor's reading lies within
// thresholdPct percent of the sender's baseline. The percentage is relative
// to the baseline, so a zero baseline would divide by zero: by policy a zero
// baseline corroborates only against an exactly-zero neighbor reading, and
// any nonzero neighbor reading counts as different.
func similarReading(baseline, neighbor, thresholdPct float64) bool {
	if baseline == 0 {
		return neighbor == 0
	}
	diff := math.Abs((neighbor-baseline)/baseline) * 100
	return diff <= thresholdPct
}

// corroboratedLocked reports whether any other vehicle within radiusKm of
// the alert's position reports a smoke or temperature reading similar to the
// sender's. A corroborated alert reflects a shared ambient condition rather
// than a local hazard. Humidity never corroborates. Caller holds the lock.
func (s *Store) corroboratedLocked(a common.Alert, radiusKm, thresholdPct float64) bool {
	for _, v := range s.vehiclesInRangeLocked(a.Latitude, a.Longitude, a.Sender, radiusKm) {
		if similarReading(a.Temperature, v.Temperature, thresholdPct) ||
			similarReading(a.Smoke, v.Smoke, thresholdPct) {
			return true
		}
	}
	return false
}

// SubmitAlert applies the corroboration gate to one candidate. A
// corroborated candidate is suppressed: nothing is stored and no receiver
// linkage is created. Otherwise the alert is persisted with its receiver
// set: every vehicle within radiusKm of the alert's position except the
// sender, regardless of their readings.
func (s *Store) SubmitAlert(a common.Alert, radiusKm, thresholdPct float64) (accepted bool, receivers []int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[a.Sender]; !ok {
		return false, nil, ErrVehicleNotFound
	}

	if s.corroboratedLocked(a, radiusKm, thresholdPct) {
		return false, nil, nil
	}

	receivers = []int{}
	for _, v := range s.vehiclesInRangeLocked(a.Latitude, a.Longitude, a.Sender, radiusKm) {
		receivers = append(receivers, v.ID)
	}

	s.alerts = append(s.alerts, common.StoredAlert{
		Alert:     a,
		Receivers: receivers,
		Date:      time.Now(),
		Recent:    true,
	})
	return true, receivers, nil
}
