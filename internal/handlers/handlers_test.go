package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/config"
	"github.com/industrieschule/vertretungsplan/internal/database"
	"github.com/industrieschule/vertretungsplan/internal/endpoint"
	"github.com/industrieschule/vertretungsplan/internal/models"
	"github.com/industrieschule/vertretungsplan/internal/plan"
)

func setup(t *testing.T, debugMode bool) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("API_URL", "https://vp.example.org/api")

	cfg := config.Load()
	cfg.DBDriver = config.DriverSQLite
	cfg.DBSQLitePath = filepath.Join(t.TempDir(), "test.db")
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	log := zaptest.NewLogger(t)
	site, err := config.NewSiteSource("", log)
	require.NoError(t, err)

	reg := endpoint.NewRegistry(log)
	Register(reg, Deps{DB: db, Site: site, Log: log})
	r := gin.New()
	_, err = reg.Mount(context.Background(), r, "/api", debugMode)
	require.NoError(t, err)
	return r, db
}

func request(r http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestDemoEndpointsOnlyInDebug(t *testing.T) {
	r, db := setup(t, false)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/api/hello?name=x", "").Code)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodPost, "/api/petAnimal", "").Code)
	var count int64
	require.NoError(t, db.Model(&models.PlanDay{}).Count(&count).Error)
	assert.Zero(t, count, "demo seed hook must not run outside debug mode")

	r, db = setup(t, true)
	rec := request(r, http.MethodGet, "/api/hello?name=Moritz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"Hello Moritz!"`, rec.Body.String())

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec = request(r, method, "/api/petAnimal", "")
		assert.JSONEq(t, `"purr purr ~ The animal likes this"`, rec.Body.String())
	}

	rec = request(r, http.MethodPost, "/api/graphql", `{"query":"mutation { petAnimal }"}`)
	assert.JSONEq(t, `{"data":{"petAnimal":"purr purr ~ The animal likes this"}}`, rec.Body.String())

	require.NoError(t, db.Model(&models.PlanDay{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSiteEndpoints(t *testing.T) {
	r, _ := setup(t, false)

	rec := request(r, http.MethodGet, "/api/v1/site", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Head          config.Head `json:"head"`
		CSS           []string    `json:"css"`
		Modules       []string    `json:"modules"`
		RuntimeConfig struct {
			Public map[string]string `json:"public"`
		} `json:"runtimeConfig"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "utf-8", body.Head.Charset)
	assert.Equal(t, []string{"~/assets/css/main.css"}, body.CSS)
	assert.Equal(t, []string{"@nuxtjs/tailwindcss"}, body.Modules)
	assert.Equal(t, "https://vp.example.org/api", body.RuntimeConfig.Public["API_URL"])
	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	assert.NotContains(t, top, "public")

	rec = request(r, http.MethodGet, "/api/v1/site/title?page=Heute", "")
	assert.JSONEq(t, `"Heute - Vertretungsplan"`, rec.Body.String())

	rec = request(r, http.MethodPost, "/api/graphql", `{"query":"{ siteTitle(page: \"Morgen\") }"}`)
	assert.JSONEq(t, `{"data":{"siteTitle":"Morgen - Vertretungsplan"}}`, rec.Body.String())

	rec = request(r, http.MethodPost, "/api/graphql", `{"query":"{ siteTitle }"}`)
	assert.JSONEq(t, `{"data":{"siteTitle":"Vertretungsplan"}}`, rec.Body.String())
}

func TestPlanEndpoint(t *testing.T) {
	r, db := setup(t, false)
	today := models.NormalizeDate(time.Now())
	days := []models.PlanDay{
		{Date: today, Header: "Heute", Published: true, Lessons: []models.PlanLesson{
			{Position: 1, Stunde: "1", Massnahme: "Entfall", Klasse: "10a"},
			{Position: 2, Stunde: "2", Massnahme: "Raumwechsel", Klasse: "9b"},
			{Position: 3, Stunde: "Ganzer Tag", Massnahme: "Wandertag", Klasse: models.AllClasses},
		}},
		{Date: today.AddDate(0, 0, 1), Header: "Entwurf", Published: false},
		{Date: today.AddDate(0, 0, -1), Header: "Gestern", Published: true},
	}
	for i := range days {
		require.NoError(t, db.Create(&days[i]).Error)
	}

	rec := request(r, http.MethodGet, "/api/v1/plan?klasse=10a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var views []plan.DayView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Heute", views[0].Header)
	require.Len(t, views[0].Lessons, 2)
	assert.Equal(t, "10a", views[0].Lessons[0].Klasse)
	assert.Equal(t, models.AllClasses, views[0].Lessons[1].Klasse)

	from := today.AddDate(0, 0, -1).Format(plan.DateLayout)
	rec = request(r, http.MethodPost, "/api/graphql",
		`{"query":"query($from: String) { plan(klasse: \"9b\", from: $from) { header lessons { klasse } } }","variables":{"from":"`+from+`"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"plan":[
		{"header":"Gestern","lessons":[]},
		{"header":"Heute","lessons":[{"klasse":"9b"},{"klasse":"ALLE"}]}
	]}}`, rec.Body.String())

	rec = request(r, http.MethodGet, "/api/v1/plan?from=gestern", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = request(r, http.MethodGet, "/api/v1/plan?from=2024-09-05&to=2024-09-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWsDemoEcho(t *testing.T) {
	r, _ := setup(t, true)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/wsdemo"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Hey from Hello plugin!", string(msg))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "ping", string(msg))
}
