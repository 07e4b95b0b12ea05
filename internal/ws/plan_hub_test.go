package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/industrieschule/vertretungsplan/internal/metrics"
	"github.com/industrieschule/vertretungsplan/internal/models"
)

func TestEventConcerns(t *testing.T) {
	tests := []struct {
		name    string
		classes []string
		klasse  string
		want    bool
	}{
		{"unfiltered client", []string{"10a"}, "", true},
		{"day level event", nil, "10a", true},
		{"matching class", []string{"9b", "10a"}, "10A", true},
		{"other class", []string{"9b"}, "10a", false},
		{"all classes", []string{models.AllClasses}, "10a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanEvent{Classes: tt.classes}.concerns(tt.klasse))
		})
	}
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/live" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) PlanEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev PlanEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestPlanFeedFiltersByClass(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	gin.SetMode(gin.TestMode)
	m := metrics.New()
	hub := NewPlanHub(zaptest.NewLogger(t), m)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	r := gin.New()
	r.GET("/live", PlanFeed(hub))
	srv := httptest.NewServer(r)

	all := dial(t, srv, "")
	tenA := dial(t, srv, "?klasse=10a")
	require.Eventually(t, func() bool { return hub.Subscribers() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP vertretungsplan_live_subscribers Connected live plan feed clients.
# TYPE vertretungsplan_live_subscribers gauge
vertretungsplan_live_subscribers 2
`), "vertretungsplan_live_subscribers"))

	hub.Publish(PlanEvent{Type: LessonCreated, DayID: "d1", Classes: []string{"9b"}})
	hub.Publish(PlanEvent{Type: LessonUpdated, DayID: "d1", Classes: []string{"10a"}})

	assert.Equal(t, LessonCreated, readEvent(t, all).Type)
	assert.Equal(t, LessonUpdated, readEvent(t, all).Type)
	ev := readEvent(t, tenA)
	assert.Equal(t, LessonUpdated, ev.Type)
	assert.False(t, ev.At.IsZero())

	cancel()
	<-stopped
	for _, conn := range []*websocket.Conn{all, tenA} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.True(t, websocket.IsCloseError(err, websocket.CloseNoStatusReceived), "got %v", err)
		conn.Close()
	}
	assert.Equal(t, 0, hub.Subscribers())

	hub.Publish(PlanEvent{Type: DayDeleted})
	srv.Close()
}

func TestPlanFeedRejectsAfterStop(t *testing.T) {
	hub := NewPlanHub(zaptest.NewLogger(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/live", PlanFeed(hub))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNilHubIsSafe(t *testing.T) {
	var hub *PlanHub
	assert.NotPanics(t, func() { hub.Publish(PlanEvent{Type: DayCreated}) })
	assert.Equal(t, 0, hub.Subscribers())
}
