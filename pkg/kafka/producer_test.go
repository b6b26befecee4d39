package kafka

import (
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer(t *testing.T) {
	t.Run("requires brokers", func(t *testing.T) {
		_, err := NewProducer(Config{})
		require.Error(t, err)
	})

	t.Run("plain connection has no transport", func(t *testing.T) {
		p, err := NewProducer(Config{Brokers: []string{"localhost:9092", "localhost:9093"}})
		require.NoError(t, err)
		assert.Len(t, p.brokers, 2)
		assert.Nil(t, p.transport)
		assert.Empty(t, p.writers)
	})

	t.Run("tls and sasl build a transport", func(t *testing.T) {
		p, err := NewProducer(Config{
			Brokers:      []string{"kafka:9092"},
			TLS:          true,
			SASLEnabled:  true,
			SASLUsername: "svc",
			SASLPassword: "secret",
		})
		require.NoError(t, err)
		require.NotNil(t, p.transport)
		assert.NotNil(t, p.transport.TLS)
		assert.NotNil(t, p.transport.SASL)
	})

	t.Run("unknown sasl mechanism", func(t *testing.T) {
		_, err := NewProducer(Config{
			Brokers:       []string{"kafka:9092"},
			SASLEnabled:   true,
			SASLMechanism: "GSSAPI",
		})
		assert.ErrorContains(t, err, "unsupported SASL mechanism")
	})
}

func TestProducer_WriterPerTopic(t *testing.T) {
	p, err := NewProducer(Config{Brokers: []string{"kafka:9092"}})
	require.NoError(t, err)

	w1 := p.getOrCreateWriter("fraud.scores")
	w2 := p.getOrCreateWriter("fraud.scores")
	w3 := p.getOrCreateWriter("fraud.requests")

	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
	assert.Equal(t, "fraud.scores", w1.Topic)
	require.NoError(t, p.Close())
	assert.Empty(t, p.writers)
}

func TestMessageConversion(t *testing.T) {
	msgs := toKafkaMessages([]Message{{
		Key:     []byte("tx-1"),
		Value:   []byte(`{"probability":0.85}`),
		Headers: map[string]string{"event_type": "fraud.score.completed"},
	}})
	require.Len(t, msgs, 1)
	assert.Equal(t, "tx-1", string(msgs[0].Key))
	require.Len(t, msgs[0].Headers, 1)
	assert.Equal(t, "event_type", msgs[0].Headers[0].Key)

	back := fromKafkaMessage(kafkago.Message{
		Key:     msgs[0].Key,
		Value:   msgs[0].Value,
		Headers: msgs[0].Headers,
	})
	assert.Equal(t, "fraud.score.completed", back.Headers["event_type"])
	assert.Equal(t, `{"probability":0.85}`, string(back.Value))
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Nil(t, ParseBrokers(""))
}
