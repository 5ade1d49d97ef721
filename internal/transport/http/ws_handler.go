package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// FeedHandler streams quiz notices to operators over a websocket.
type FeedHandler struct {
	hub      *Hub
	token    string
	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

func NewFeedHandler(hub *Hub, token string, log logrus.FieldLogger) *FeedHandler {
	return &FeedHandler{
		hub:   hub,
		token: token,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.WithField("component", "notice_feed"),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and forwards every notice until the client leaves.
func (h *FeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.token == "" {
		http.Error(w, "feed disabled", http.StatusNotFound)
		return
	}
	if subtle.ConstantTimeCompare([]byte(r.URL.Query().Get("token")), []byte(h.token)) != 1 {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	notices, backlog, cancel := h.hub.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	noticesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(noticesDone)
		for {
			select {
			case n, ok := <-notices:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "notice", Payload: n}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "backlog", Payload: backlog}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "ping":
			send <- outboundMessage[any]{Type: "pong", Payload: map[string]int{"subscribers": h.hub.Subscribers()}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-noticesDone
	close(send)
	<-writerDone
}
