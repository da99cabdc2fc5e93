package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventHeaders(t *testing.T) {
	m := kafka.Message{Headers: EventHeaders("CartSynced", 1)}

	assert.Equal(t, "CartSynced", HeaderValue(m, "x-event-type"))
	assert.Equal(t, "1", HeaderValue(m, "x-event-version"))
	assert.Empty(t, HeaderValue(m, "missing"))
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		SessionID string `json:"session_id"`
	}
	got, err := UnwrapPayload[payload](json.RawMessage(`{"session_id":"s1"}`))
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)

	_, err = UnwrapPayload[payload](json.RawMessage(`[`))
	assert.Error(t, err)
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "t", 1, zap.NewNop())
	p.Close()
	p.Close()
	assert.NotPanics(t, func() { p.Publish([]byte("k"), []byte("v")) })
}
