package mqtt

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Config represents the alarm channel configuration.
type Config struct {
	Broker         string        `mapstructure:"broker"`          // broker address, e.g. "tcp://localhost:1883"
	Username       string        `mapstructure:"username"`        // optional
	Password       string        `mapstructure:"password"`        // optional
	ClientID       string        `mapstructure:"client_id"`       // generated when empty
	Topic          string        `mapstructure:"topic"`           // the single shared alarm topic
	QoS            byte          `mapstructure:"qos"`             // quality of service (0, 1, 2)
	KeepAlive      int           `mapstructure:"keep_alive"`      // keep alive interval in seconds
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // connect timeout
	AutoReconnect  bool          `mapstructure:"auto_reconnect"`  // reconnect automatically on connection loss
}

// generateClientID generates a random client id.
func generateClientID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return "autoguardian-bridge-" + hex.EncodeToString(b)
}

// DefaultConfig returns the default alarm channel configuration.
func DefaultConfig() Config {
	return Config{
		Broker:         "tcp://localhost:1883",
		ClientID:       generateClientID(),
		Topic:          "alerts",
		QoS:            1,
		KeepAlive:      60,
		ConnectTimeout: 10 * time.Second,
		AutoReconnect:  true,
	}
}

// AlarmHandler receives the neighbor id list of an accepted alert. It is
// invoked on the MQTT client's own goroutine, concurrently with the
// ingestion loop.
type AlarmHandler func(ids []int)

// Client is the alarm channel client. All vehicle nodes share one topic:
// accepted alerts are published on it as neighbor id lists, and every
// subscriber decides relevance by checking its own id for membership.
type Client struct {
	config     Config
	mqttClient mqttLib.Client
	handler    AlarmHandler
}

// NewClient creates an alarm channel client. The handler may be nil for a
// publish-only client.
func NewClient(config Config, handler AlarmHandler) *Client {
	if config.ClientID == "" {
		config.ClientID = generateClientID()
	}
	return &Client{
		config:  config,
		handler: handler,
	}
}

// Start connects to the broker and subscribes to the alarm topic.
func (c *Client) Start() error {
	log.Info().Str("broker", c.config.Broker).Msg("Starting alarm channel client")

	opts := mqttLib.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetKeepAlive(time.Duration(c.config.KeepAlive) * time.Second)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetAutoReconnect(c.config.AutoReconnect)

	if c.config.Username != "" && c.config.Password != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
		log.Info().Msg("MQTT authentication: ENABLED")
	} else {
		log.Info().Msg("MQTT authentication: DISABLED (anonymous mode)")
	}

	opts.SetOnConnectHandler(c.onConnectHandler)
	opts.SetConnectionLostHandler(c.onConnectionLostHandler)
	opts.SetReconnectingHandler(c.onReconnectingHandler)

	c.mqttClient = mqttLib.NewClient(opts)

	if token := c.mqttClient.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	log.Info().Msg("Alarm channel client started")
	return nil
}

// Stop disconnects from the broker.
func (c *Client) Stop() {
	if c.mqttClient != nil && c.mqttClient.IsConnected() {
		c.mqttClient.Disconnect(1000)
		log.Info().Msg("Alarm channel client disconnected")
	}
}

// onConnectHandler subscribes to the alarm topic on every (re)connect.
func (c *Client) onConnectHandler(client mqttLib.Client) {
	log.Info().Msg("Connected to MQTT broker")

	if token := client.Subscribe(c.config.Topic, c.config.QoS, c.onAlarmReceived); token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", c.config.Topic).Msg("Failed to subscribe to alarm topic")
		return
	}
	log.Info().Str("topic", c.config.Topic).Msg("Subscribed to alarm topic")
}

func (c *Client) onConnectionLostHandler(client mqttLib.Client, err error) {
	log.Error().Err(err).Msg("MQTT connection lost")
}

func (c *Client) onReconnectingHandler(client mqttLib.Client, opts *mqttLib.ClientOptions) {
	log.Info().Msg("Attempting to reconnect to MQTT broker...")
}

// onAlarmReceived handles an inbound alarm message. Payloads that are not a
// plain list of vehicle ids are discarded silently except for a log line.
func (c *Client) onAlarmReceived(client mqttLib.Client, msg mqttLib.Message) {
	ids, err := ParseAlarmPayload(msg.Payload())
	if err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Msg("Dropping malformed alarm payload")
		return
	}

	if c.handler != nil {
		c.handler(ids)
	}
}

// ParseAlarmPayload strictly parses an alarm payload into a list of integer
// vehicle ids. The payload comes from the shared broker and is untrusted:
// anything other than a JSON array of integers is rejected.
func ParseAlarmPayload(payload []byte) ([]int, error) {
	if string(bytes.TrimSpace(payload)) == "null" {
		return nil, fmt.Errorf("alarm payload is null, want a list of vehicle ids")
	}

	var ids []int
	if err := json.Unmarshal(payload, &ids); err != nil {
		return nil, fmt.Errorf("alarm payload is not a list of vehicle ids: %v", err)
	}
	return ids, nil
}

// PublishNeighbors broadcasts the neighbor id list of an accepted alert on
// the alarm topic. Publishing is fire-and-forget: no acknowledgment beyond
// the broker handshake, no retry.
func (c *Client) PublishNeighbors(ids []int) error {
	if c.mqttClient == nil || !c.mqttClient.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	if ids == nil {
		ids = []int{}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal neighbor list: %v", err)
	}

	token := c.mqttClient.Publish(c.config.Topic, c.config.QoS, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %v", c.config.Topic, token.Error())
	}

	log.Info().Str("topic", c.config.Topic).Ints("neighbors", ids).Msg("Published alarm broadcast")
	return nil
}

// IsConnected reports whether the client is connected to the broker.
func (c *Client) IsConnected() bool {
	return c.mqttClient != nil && c.mqttClient.IsConnected()
}
