package broadcast

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	sent []published
	err  error
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return fakeToken{err: c.err}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMQTTPublisherPublish(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	p := newMQTTPublisher(client, Config{QoS: 1}, quietLogger())

	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	err := p.Publish(context.Background(), Update{
		SessionID:   "math-7a",
		StudentID:   "stu-1",
		StudentName: "Ayu",
		Score:       81,
		Level:       "focused",
		Timestamp:   ts,
	})
	require.NoError(t, err)
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	assert.Equal(t, "classlens/session/math-7a/engagement", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var got map[string]any
	require.NoError(t, jsoniter.Unmarshal(msg.payload, &got))
	assert.Equal(t, "math-7a", got["session_id"])
	assert.Equal(t, "stu-1", got["student_id"])
	assert.Equal(t, float64(81), got["score"])
	assert.Equal(t, "focused", got["level"])
	assert.NotContains(t, got, "agora_uid")
}

func TestMQTTPublisherError(t *testing.T) {
	t.Parallel()

	client := &fakeClient{err: errors.New("not connected")}
	p := newMQTTPublisher(client, Config{Topic: "live/{session_id}"}, quietLogger())

	err := p.Publish(context.Background(), Update{SessionID: "s1"})
	assert.ErrorContains(t, err, "not connected")
	assert.Equal(t, "live/s1", client.sent[0].topic)
}

func TestNoop(t *testing.T) {
	t.Parallel()

	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), Update{SessionID: "s"}))
	p.Close()
}
