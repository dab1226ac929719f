package landmark

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// WSProvider keeps one socket to the landmark service. Frames go out as binary
// messages and each is answered by one JSON message, so round trips are serialized.
type WSProvider struct {
	url          string
	log          *logrus.Logger
	conn         *websocket.Conn
	mu           sync.Mutex
	rt           sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewWSProvider(url string, timeout time.Duration, logger *logrus.Logger) *WSProvider {
	p := &WSProvider{
		url:          url,
		log:          logger,
		pingInterval: 30 * time.Second,
		readTimeout:  timeout,
		writeTimeout: 5 * time.Second,
	}

	go p.connectInBackground()

	return p
}

func (p *WSProvider) connectInBackground() {
	if _, err := p.connection(); err != nil {
		p.log.Warnf("Initial connection to landmark service failed: %v. Will retry on demand.", err)
		return
	}
	p.log.Infof("Connected to landmark service at %s", p.url)
}

func (p *WSProvider) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}

// Reconnect drops the current socket, if any, and dials again.
func (p *WSProvider) Reconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	return p.dialLocked()
}

func (p *WSProvider) dialLocked() error {
	if p.url == "" {
		return fmt.Errorf("%w: websocket url not configured", ErrUnavailable)
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(p.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrUnavailable, p.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(p.writeTimeout)); err != nil {
			p.log.Debugf("Error sending pong: %v", err)
		}
		return nil
	})

	p.conn = conn
	go p.keepAlive(conn)

	return nil
}

func (p *WSProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *WSProvider) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(p.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.conn != conn {
			p.mu.Unlock()
			return
		}

		if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(p.writeTimeout)); err != nil {
			p.log.Warnf("Ping to landmark service failed, dropping connection: %v", err)
			p.conn = nil
			conn.Close()
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
}

func (p *WSProvider) connection() (*websocket.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		if err := p.dialLocked(); err != nil {
			return nil, err
		}
	}
	return p.conn, nil
}

// drop forgets conn unless a reconnect already replaced it.
func (p *WSProvider) drop(conn *websocket.Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == conn {
		p.conn = nil
	}
	conn.Close()
}

func (p *WSProvider) Detect(ctx context.Context, image []byte) (*Detection, error) {
	p.rt.Lock()
	defer p.rt.Unlock()

	conn, err := p.connection()
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(p.readTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	p.mu.Lock()
	conn.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	err = conn.WriteMessage(websocket.BinaryMessage, image)
	p.mu.Unlock()
	if err != nil {
		p.drop(conn)
		return nil, fmt.Errorf("%w: send frame: %v", ErrUnavailable, err)
	}

	conn.SetReadDeadline(deadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		p.drop(conn)
		return nil, fmt.Errorf("%w: read reply: %v", ErrUnavailable, err)
	}
	conn.SetReadDeadline(time.Time{})

	var out detectResponse
	if err := jsoniter.Unmarshal(message, &out); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %v", ErrUnavailable, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrRejected, out.Error)
	}

	p.log.WithFields(logrus.Fields{
		"frame_size":   len(image),
		"face_present": out.FacePresent,
		"points":       len(out.Landmarks),
	}).Debug("Received landmarks from websocket")

	return out.toDetection()
}

func (p *WSProvider) Health(ctx context.Context) error {
	_, err := p.connection()
	return err
}
