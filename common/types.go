package common

import "time"

// Vehicle is the record the registry keeps per physical vehicle. The id is
// assigned externally and never changes after creation.
type Vehicle struct {
	ID          int     `json:"id"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Smoke       float64 `json:"smoke"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Alert is a candidate hazard notification submitted to the alert store.
// The s/t/u flags mirror the hazard indicators carried on the telemetry frame:
// smoke, temperature and humidity threshold exceeded respectively.
type Alert struct {
	Sender      int     `json:"sender"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Smoke       float64 `json:"smoke"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	SmokeFlag   bool    `json:"s"`
	TempFlag    bool    `json:"t"`
	HumFlag     bool    `json:"u"`
}

// StoredAlert is an accepted alert as the store keeps it: the submitted
// candidate plus the receiver set and bookkeeping fields.
type StoredAlert struct {
	Alert
	Receivers []int     `json:"receivers"`
	Date      time.Time `json:"date"`
	Recent    bool      `json:"recent"`
}
