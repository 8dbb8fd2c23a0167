package serial

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// AlarmByte is the sentinel written to the device to actuate the physical
// alarm output.
const AlarmByte = '$'

// Config represents the serial transport configuration.
type Config struct {
	DevicePath string `mapstructure:"device_path"` // e.g. "/dev/ttyACM0"
}

// DefaultConfig returns the default serial configuration.
func DefaultConfig() Config {
	return Config{
		DevicePath: "/dev/ttyACM0",
	}
}

// Port wraps the serial device shared by the two flows of the bridge: the
// ingestion loop reads telemetry bytes, while alarm actuation writes arrive
// on the MQTT client's goroutine. The write side is guarded by a mutex; the
// read side has a single owner and needs none.
type Port struct {
	conn    io.ReadWriteCloser
	reader  *bufio.Reader
	writeMu sync.Mutex
}

// Open opens the configured device. A failure here is the only fatal
// condition of the pipeline: the operator must fix the configuration and
// restart.
func Open(cfg Config) (*Port, error) {
	if _, err := os.Stat(cfg.DevicePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("device %s does not exist", cfg.DevicePath)
	}

	file, err := os.OpenFile(cfg.DevicePath, os.O_RDWR|unix.O_NOCTTY|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", cfg.DevicePath, err)
	}

	log.Info().Str("device", cfg.DevicePath).Msg("Serial port opened")
	return NewPort(file), nil
}

// NewPort wraps an already open connection. Tests inject an in-memory
// io.ReadWriteCloser here.
func NewPort(conn io.ReadWriteCloser) *Port {
	return &Port{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

// ReadByte blocks until one byte is available on the device and returns it.
func (p *Port) ReadByte() (byte, error) {
	return p.reader.ReadByte()
}

// Write writes raw bytes to the device under the write lock.
func (p *Port) Write(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if _, err := p.conn.Write(data); err != nil {
		return fmt.Errorf("serial write: %v", err)
	}
	return nil
}

// TriggerAlarm actuates the physical alarm by writing the alarm sentinel.
func (p *Port) TriggerAlarm() error {
	return p.Write([]byte{AlarmByte})
}

// Close closes the underlying device.
func (p *Port) Close() error {
	return p.conn.Close()
}
