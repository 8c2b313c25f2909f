package broker

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePersistentJSON(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg, err := encode("order_ready", map[string]interface{}{"orderIds": []uint{3, 4}}, at)
	require.NoError(t, err)

	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "order_ready", msg.Type)

	var decoded struct {
		Event string `json:"event"`
		Data  struct {
			OrderIDs []uint `json:"orderIds"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "order_ready", decoded.Event)
	assert.Equal(t, []uint{3, 4}, decoded.Data.OrderIDs)
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode("bad", make(chan int), time.Now())
	assert.Error(t, err)
}

func TestCloseNil(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, p.Close)
}
