package bridge

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Giacomo117/AutoGuardian/common"
	"github.com/Giacomo117/AutoGuardian/frame"
)

// VehicleRegistry is the remote store's vehicle endpoint.
type VehicleRegistry interface {
	Create(v common.Vehicle) error
	Update(id int, v common.Vehicle) error
}

// AlertStore submits alert candidates and reports the store's
// accept/suppress verdict.
type AlertStore interface {
	Submit(a common.Alert) (accepted bool, err error)
}

// NeighborDirectory resolves the current neighbor id set of a vehicle.
type NeighborDirectory interface {
	Neighbors(id int) ([]int, error)
}

// AlarmPublisher broadcasts a neighbor id list on the alarm channel.
type AlarmPublisher interface {
	PublishNeighbors(ids []int) error
}

// SerialPort is the part of the serial transport the bridge drives: the
// ingestion loop reads it byte by byte, alarm handling writes the actuation
// sentinel.
type SerialPort interface {
	ReadByte() (byte, error)
	TriggerAlarm() error
}

// Config represents the bridge identity configuration.
type Config struct {
	VehicleID int `mapstructure:"vehicle_id"` // id of the vehicle this bridge is mounted on
}

// DefaultConfig returns the default bridge configuration.
func DefaultConfig() Config {
	return Config{
		VehicleID: 1,
	}
}

// Bridge runs the telemetry pipeline of one vehicle: it recovers frames from
// the serial stream, mirrors the vehicle state into the registry, submits
// hazard alerts for corroboration and broadcasts accepted alerts to the
// neighbor vehicles.
type Bridge struct {
	id        int
	port      SerialPort
	registry  VehicleRegistry
	alerts    AlertStore
	neighbors NeighborDirectory
	publisher AlarmPublisher

	decoder *frame.Decoder

	// created latches after the first ingested frame: exactly one create
	// call across the process lifetime, updates from then on.
	created bool
}

// New creates a bridge for the given vehicle id and collaborators.
func New(cfg Config, port SerialPort, registry VehicleRegistry, alerts AlertStore, neighbors NeighborDirectory, publisher AlarmPublisher) *Bridge {
	return &Bridge{
		id:        cfg.VehicleID,
		port:      port,
		registry:  registry,
		alerts:    alerts,
		neighbors: neighbors,
		publisher: publisher,
		decoder:   frame.NewDecoder(),
	}
}

// Run drives the ingestion loop: read one byte, feed the frame decoder, and
// on a completed frame run the whole pipeline synchronously before reading
// again. Frames are therefore processed strictly in arrival order. Run
// returns only when the serial transport fails, which like a failed startup
// requires the operator to intervene; every remote failure inside the
// pipeline is logged and absorbed.
func (b *Bridge) Run() error {
	log.Info().Int("vehicle", b.id).Msg("Bridge ingestion loop started")

	for {
		c, err := b.port.ReadByte()
		if err != nil {
			return fmt.Errorf("serial read: %v", err)
		}

		body, ok := b.decoder.Feed(c)
		if !ok {
			continue
		}
		b.handleFrame(body)
	}
}

// handleFrame processes one complete frame body.
func (b *Bridge) handleFrame(body []byte) {
	f, err := frame.Parse(body)
	if err != nil {
		log.Error().Err(err).Msg("Dropping malformed frame")
		return
	}

	b.ingest(f)
	b.checkAlert(f)
}

// ingest mirrors the frame into the vehicle registry: a create on the very
// first frame of the process, an update keyed by vehicle id on every frame.
// Registry failures do not block further frame processing.
func (b *Bridge) ingest(f *frame.Frame) {
	v := f.Vehicle()

	if !b.created {
		if err := b.registry.Create(v); err != nil {
			log.Error().Err(err).Int("vehicle", v.ID).Msg("Vehicle create failed")
		}
		b.created = true
	}

	if err := b.registry.Update(v.ID, v); err != nil {
		log.Error().Err(err).Int("vehicle", v.ID).Msg("Vehicle update failed")
	}
}

// checkAlert runs the hazard path: nothing happens unless at least one
// threshold flag is set. A warranted alert is submitted once; when the store
// accepts it, the current neighbor set is resolved and broadcast on the
// alarm channel so the neighbors' physical alarms can sound.
func (b *Bridge) checkAlert(f *frame.Frame) {
	if !f.HazardTriggered() {
		return
	}

	accepted, err := b.alerts.Submit(f.AlertCandidate())
	if err != nil {
		log.Error().Err(err).Int("vehicle", f.ID).Msg("Alert submission failed")
		return
	}
	if !accepted {
		log.Info().Int("vehicle", f.ID).Msg("Alert suppressed: neighbors report similar readings")
		return
	}

	ids, err := b.neighbors.Neighbors(b.id)
	if err != nil {
		log.Error().Err(err).Int("vehicle", b.id).Msg("Neighbor lookup failed, alert not broadcast")
		return
	}

	log.Info().Ints("neighbors", ids).Msg("Alert accepted, broadcasting to neighbors")
	if err := b.publisher.PublishNeighbors(ids); err != nil {
		log.Error().Err(err).Msg("Alarm broadcast failed")
	}
}

// HandleAlarm consumes one alarm broadcast. It runs on the MQTT client's
// goroutine, concurrently with the ingestion loop; the serial port's write
// lock is the only coordination between the two. Messages not containing
// this vehicle's id have no effect.
func (b *Bridge) HandleAlarm(ids []int) {
	for _, id := range ids {
		if id != b.id {
			continue
		}
		if err := b.port.TriggerAlarm(); err != nil {
			log.Error().Err(err).Msg("Failed to actuate alarm")
			return
		}
		log.Info().Int("vehicle", b.id).Msg("Alarm actuated")
		return
	}

	log.Debug().Ints("ids", ids).Msg("Alarm broadcast not addressed to this vehicle")
}
