package landmark

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meshResponse(n int, pose *poseResponse) detectResponse {
	points := make([][]float64, n)
	for i := range points {
		points[i] = []float64{float64(i) / float64(n), 0.5, 0}
	}
	return detectResponse{FacePresent: true, Landmarks: points, Pose: pose}
}

func TestToDetection(t *testing.T) {
	t.Parallel()

	t.Run("no face", func(t *testing.T) {
		t.Parallel()
		d, err := detectResponse{FacePresent: false}.toDetection()
		require.NoError(t, err)
		assert.Nil(t, d.Landmarks)
		assert.Nil(t, d.Pose)
	})

	t.Run("full mesh with pose", func(t *testing.T) {
		t.Parallel()
		d, err := meshResponse(478, &poseResponse{Pitch: -5, Yaw: 12, Roll: 1}).toDetection()
		require.NoError(t, err)
		assert.Equal(t, 478, d.Landmarks.Len())
		require.NotNil(t, d.Pose)
		assert.Equal(t, 12.0, d.Pose.Yaw)
	})

	t.Run("short mesh", func(t *testing.T) {
		t.Parallel()
		_, err := meshResponse(100, nil).toDetection()
		assert.ErrorIs(t, err, ErrTopology)
	})

	t.Run("bad point", func(t *testing.T) {
		t.Parallel()
		r := meshResponse(MinPoints, nil)
		r.Landmarks[10] = []float64{0.1}
		_, err := r.toDetection()
		assert.ErrorIs(t, err, ErrTopology)
	})
}

func TestHTTPProviderDetect(t *testing.T) {
	t.Parallel()

	frame := []byte("jpeg-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/landmarks":
			var req detectRequest
			if err := jsoniter.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
			raw, _ := base64.StdEncoding.DecodeString(req.Image)
			if string(raw) != string(frame) {
				http.Error(w, "cannot decode image", http.StatusUnprocessableEntity)
				return
			}
			_ = jsoniter.NewEncoder(w).Encode(meshResponse(478, nil))
		case "/health":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/", 2*time.Second)

	d, err := p.Detect(context.Background(), frame)
	require.NoError(t, err)
	assert.Equal(t, 478, d.Landmarks.Len())
	assert.Nil(t, d.Pose)

	_, err = p.Detect(context.Background(), []byte("other"))
	assert.ErrorIs(t, err, ErrRejected)

	assert.NoError(t, p.Health(context.Background()))
}

func TestHTTPProviderUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, time.Second)
	_, err := p.Detect(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, p.Health(context.Background()), ErrUnavailable)

	closed := NewHTTPProvider("http://127.0.0.1:1", time.Second)
	_, err = closed.Detect(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWSProviderDetect(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			var reply detectResponse
			switch string(msg) {
			case "face":
				reply = meshResponse(478, &poseResponse{Yaw: 3})
			case "broken":
				reply = detectResponse{Error: "decode failed"}
			default:
				reply = detectResponse{FacePresent: false}
			}
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	p := NewWSProvider("ws"+strings.TrimPrefix(srv.URL, "http"), 2*time.Second, logger)
	defer p.Close()

	d, err := p.Detect(context.Background(), []byte("face"))
	require.NoError(t, err)
	assert.Equal(t, 478, d.Landmarks.Len())
	require.NotNil(t, d.Pose)
	assert.Equal(t, 3.0, d.Pose.Yaw)

	d, err = p.Detect(context.Background(), []byte("empty"))
	require.NoError(t, err)
	assert.Nil(t, d.Landmarks)

	_, err = p.Detect(context.Background(), []byte("broken"))
	assert.ErrorIs(t, err, ErrRejected)

	assert.NoError(t, p.Health(context.Background()))
	assert.True(t, p.IsConnected())
}

func TestWSProviderNoURL(t *testing.T) {
	t.Parallel()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	p := NewWSProvider("", time.Second, logger)
	_, err := p.Detect(context.Background(), []byte("face"))
	assert.ErrorIs(t, err, ErrUnavailable)
}
