package mqtt

import (
	"testing"

	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotEmpty(t, config.Broker)
	assert.NotEmpty(t, config.ClientID)
	assert.NotEmpty(t, config.Topic)
	assert.LessOrEqual(t, config.QoS, byte(2))
}

func TestGenerateClientID(t *testing.T) {
	id1 := generateClientID()
	id2 := generateClientID()

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2, "Expected unique client IDs")
	assert.GreaterOrEqual(t, len(id1), 21) // "autoguardian-bridge-" + 4 bytes hex
}

func TestParseAlarmPayload(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		expected    []int
		expectError bool
	}{
		{
			name:     "list of ids",
			payload:  "[5, 9]",
			expected: []int{5, 9},
		},
		{
			name:     "empty list",
			payload:  "[]",
			expected: []int{},
		},
		{
			name:     "single id",
			payload:  "[1]",
			expected: []int{1},
		},
		{
			name:        "null",
			payload:     "null",
			expectError: true,
		},
		{
			name:        "object",
			payload:     `{"ids": [5, 9]}`,
			expectError: true,
		},
		{
			name:        "list of strings",
			payload:     `["5", "9"]`,
			expectError: true,
		},
		{
			name:        "list of floats",
			payload:     "[5.5]",
			expectError: true,
		},
		{
			name:        "nested list",
			payload:     "[[5], [9]]",
			expectError: true,
		},
		{
			name:        "not json at all",
			payload:     "[1, 2",
			expectError: true,
		},
		{
			name:        "trailing comma",
			payload:     "[5, 9,]",
			expectError: true,
		},
		{
			name:        "empty payload",
			payload:     "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := ParseAlarmPayload([]byte(tt.payload))

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, ids)
		})
	}
}

// fakeMessage implements mqttLib.Message for handler tests.
type fakeMessage struct {
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return "alerts" }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

var _ mqttLib.Message = (*fakeMessage)(nil)

func TestOnAlarmReceivedInvokesHandler(t *testing.T) {
	var got [][]int
	client := NewClient(DefaultConfig(), func(ids []int) {
		got = append(got, ids)
	})

	client.onAlarmReceived(nil, &fakeMessage{payload: []byte("[5, 9]")})
	client.onAlarmReceived(nil, &fakeMessage{payload: []byte("[]")})

	assert.Equal(t, [][]int{{5, 9}, {}}, got)
}

func TestOnAlarmReceivedDropsMalformedPayload(t *testing.T) {
	called := false
	client := NewClient(DefaultConfig(), func(ids []int) {
		called = true
	})

	client.onAlarmReceived(nil, &fakeMessage{payload: []byte(`{"bogus": true}`)})
	client.onAlarmReceived(nil, &fakeMessage{payload: []byte(`__import__("os")`)})

	assert.False(t, called, "Handler must not run for malformed payloads")
}

func TestPublishNeighborsRequiresConnection(t *testing.T) {
	client := NewClient(DefaultConfig(), nil)

	err := client.PublishNeighbors([]int{5, 9})
	assert.Error(t, err, "Publish without a connection must fail")
}
