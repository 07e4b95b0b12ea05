package endpoint

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type echoHandler struct {
	closed chan int
}

func (h *echoHandler) OnConnect(conn *SocketConn) { _ = conn.Send("welcome") }
func (h *echoHandler) OnMessage(conn *SocketConn, message string) {
	_ = conn.Send("echo: " + message)
}
func (h *echoHandler) OnBinaryMessage(conn *SocketConn, data []byte) { _ = conn.SendBinary(data) }
func (h *echoHandler) OnClose(_ *SocketConn, code int, _ string) {
	h.closed <- code
}
func (h *echoHandler) OnError(*SocketConn, error) {}

func TestSocketEcho(t *testing.T) {
	h := &echoHandler{closed: make(chan int, 1)}
	reg := NewRegistry(zaptest.NewLogger(t))
	reg.AddSocket(Socket{Name: "echo", Path: "/echo", Versions: []string{"v1"}, Handler: h})

	r := gin.New()
	_, err := reg.Mount(context.Background(), r, "/api", false)
	require.NoError(t, err)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/echo"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "welcome", string(msg))

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("hallo")))
	_, msg, err = ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "echo: hallo", string(msg))

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	kind, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Equal(t, []byte{1, 2, 3}, msg)

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	select {
	case code := <-h.closed:
		assert.Equal(t, websocket.CloseNormalClosure, code)
	case <-time.After(2 * time.Second):
		t.Fatal("OnClose not called")
	}
	ws.Close()
}

func TestSocketDebugOnlyNotMounted(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	reg.AddSocket(Socket{Name: "demo", Path: "/demo", DebugOnly: true, Handler: &echoHandler{}})
	routes, err := reg.Mount(context.Background(), gin.New(), "/api", false)
	require.NoError(t, err)
	assert.Empty(t, routes)
}
