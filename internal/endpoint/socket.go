package endpoint

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	socketWriteWait = 10 * time.Second
	socketPongWait  = 60 * time.Second
	socketPing      = (socketPongWait * 9) / 10
	socketReadLimit = 64 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Same policy as the CORS headers: any origin.
		return true
	},
}

// SocketHandler receives the lifecycle events of one websocket connection.
type SocketHandler interface {
	OnConnect(conn *SocketConn)
	OnMessage(conn *SocketConn, message string)
	OnBinaryMessage(conn *SocketConn, data []byte)
	OnClose(conn *SocketConn, code int, reason string)
	OnError(conn *SocketConn, err error)
}

// Socket declares a websocket endpoint.
type Socket struct {
	Name      string
	Path      string
	Versions  []string
	DebugOnly bool
	Handler   SocketHandler
}

// SocketConn wraps a websocket connection; writes are serialized.
type SocketConn struct {
	conn *websocket.Conn
	host string
	mu   sync.Mutex
}

func (s *SocketConn) Host() string { return s.host }

func (s *SocketConn) Send(message string) error {
	return s.write(websocket.TextMessage, []byte(message))
}

func (s *SocketConn) SendBinary(data []byte) error {
	return s.write(websocket.BinaryMessage, data)
}

func (s *SocketConn) write(kind int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
	return s.conn.WriteMessage(kind, data)
}

func (s *SocketConn) Close() error { return s.conn.Close() }

func socketHandler(sock Socket, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug("websocket upgrade failed", zap.String("endpoint", sock.Name), zap.Error(err))
			return
		}
		conn := &SocketConn{conn: ws, host: c.ClientIP()}
		serveSocket(conn, sock.Handler)
	}
}

func serveSocket(conn *SocketConn, h SocketHandler) {
	done := make(chan struct{})
	defer func() {
		close(done)
		conn.Close()
	}()

	conn.conn.SetReadLimit(socketReadLimit)
	_ = conn.conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})
	go pinger(conn, done)

	h.OnConnect(conn)
	for {
		kind, data, err := conn.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				h.OnClose(conn, closeErr.Code, closeErr.Text)
				return
			}
			h.OnError(conn, err)
			h.OnClose(conn, websocket.CloseAbnormalClosure, err.Error())
			return
		}
		switch kind {
		case websocket.TextMessage:
			h.OnMessage(conn, string(data))
		case websocket.BinaryMessage:
			h.OnBinaryMessage(conn, data)
		}
	}
}

func pinger(conn *SocketConn, done <-chan struct{}) {
	ticker := time.NewTicker(socketPing)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
