package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Serve pumps hub messages to a single websocket connection until the peer
// disconnects or the hub closes the subscription. It blocks and always
// closes the connection before returning.
func Serve(hub *Hub, conn *websocket.Conn, logger *logrus.Logger) {
	if logger == nil {
		logger = logrus.New()
	}

	id, messages := hub.Subscribe()
	defer hub.Unsubscribe(id)
	defer conn.Close()

	clientLog := logger.WithField("client_id", id)
	clientLog.Debug("Websocket client connected")
	defer clientLog.Debug("Websocket client disconnected")

	// The read loop exists to process close and pong control frames; the
	// dashboard never sends data messages.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case message, ok := <-messages:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
