package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/internal/models"
)

// WebSocketConfig holds the settings for a companion-device position feed.
type WebSocketConfig struct {
	URL            string
	HandshakeTime  time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
	Header         http.Header
}

// DefaultWebSocketConfig returns default feed settings for url.
func DefaultWebSocketConfig(url string) WebSocketConfig {
	return WebSocketConfig{
		URL:            url,
		HandshakeTime:  10 * time.Second,
		ReadTimeout:    60 * time.Second,
		MaxMessageSize: 1024,
	}
}

// positionMessage is what the companion device sends: either a fix or an error code.
type positionMessage struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error,omitempty"`
}

// WebSocketSource reads fixes pushed by a companion device over a websocket.
type WebSocketSource struct {
	Config WebSocketConfig
}

func (s WebSocketSource) Watch(ctx context.Context, emit func(models.Coordinate)) error {
	dialer := websocket.Dialer{HandshakeTimeout: s.Config.HandshakeTime}
	conn, _, err := dialer.DialContext(ctx, s.Config.URL, s.Config.Header)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrPositionUnavailable, s.Config.URL, err)
	}
	defer conn.Close()

	if s.Config.MaxMessageSize > 0 {
		conn.SetReadLimit(s.Config.MaxMessageSize)
	}
	extend := func() {
		if s.Config.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.Config.ReadTimeout))
		}
	}
	extend()
	conn.SetPongHandler(func(string) error {
		extend()
		return nil
	})

	// unblock ReadMessage on teardown
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	log.Info().Str("url", s.Config.URL).Msg("position feed connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
		}
		extend()

		var msg positionMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Msg("ignoring malformed position message")
			continue
		}
		switch msg.Error {
		case "":
		case "denied", "permission_denied":
			return ErrPermissionDenied
		default:
			return fmt.Errorf("%w: %s", ErrPositionUnavailable, msg.Error)
		}
		if msg.Lat == nil || msg.Lng == nil {
			continue
		}
		emit(models.Coordinate{Latitude: *msg.Lat, Longitude: *msg.Lng})
	}
}
