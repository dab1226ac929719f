package broadcast

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const DefaultTopic = "classlens/session/{session_id}/engagement"

type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// Topic may contain the {session_id} placeholder.
	Topic string
	QoS   byte
}

type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type MQTTPublisher struct {
	client  tokenPublisher
	closer  func()
	topic   string
	qos     byte
	timeout time.Duration
	log     *logrus.Logger
}

func NewMQTTPublisher(cfg Config, logger *logrus.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("MQTT connection established")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warnf("MQTT connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	logger.Infof("Connected to MQTT broker %s", cfg.Broker)

	p := newMQTTPublisher(client, cfg, logger)
	p.closer = func() { client.Disconnect(250) }
	return p, nil
}

func newMQTTPublisher(client tokenPublisher, cfg Config, logger *logrus.Logger) *MQTTPublisher {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTPublisher{
		client:  client,
		topic:   topic,
		qos:     cfg.QoS,
		timeout: 5 * time.Second,
		log:     logger,
	}
}

func (p *MQTTPublisher) Publish(ctx context.Context, u Update) error {
	payload, err := jsoniter.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal engagement update: %w", err)
	}

	topic := formatTopic(p.topic, u.SessionID)
	token := p.client.Publish(topic, p.qos, false, payload)

	wait := p.timeout
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); left < wait {
			wait = left
		}
	}
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish engagement update: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"topic":      topic,
		"session_id": u.SessionID,
		"score":      u.Score,
	}).Debug("Published engagement update")
	return nil
}

func (p *MQTTPublisher) Close() {
	if p.closer != nil {
		p.closer()
		p.log.Info("MQTT publisher disconnected")
	}
}

func formatTopic(pattern, sessionID string) string {
	return strings.ReplaceAll(pattern, "{session_id}", sessionID)
}
