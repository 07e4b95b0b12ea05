package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func hello(p *Params) (any, error) {
	name, err := ArgumentOrDefault(p, "name", "Welt", FromQuery)
	if err != nil {
		return nil, err
	}
	return "Hello " + name + "!", nil
}

func helloEndpoint() Endpoint {
	return Endpoint{
		Name:    "hello",
		Kind:    KindMulti,
		Methods: []string{http.MethodGet},
		Path:    "/hello",
		Field:   "hello",
		Args:    graphql.FieldConfigArgument{"name": &graphql.ArgumentConfig{Type: graphql.String}},
		Handler: hello,
	}
}

func mount(t *testing.T, reg *Registry, debugMode bool) (*gin.Engine, []Route) {
	t.Helper()
	r := gin.New()
	routes, err := reg.Mount(context.Background(), r, "/api", debugMode)
	require.NoError(t, err)
	return r, routes
}

func do(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestConstructPath(t *testing.T) {
	assert.Equal(t, "/api/hello", ConstructPath("/api", "", "/hello"))
	assert.Equal(t, "/api/v1/hello", ConstructPath("/api", "v1", "/hello"))
	assert.Equal(t, "/v2/hello", ConstructPath("", "/v2/", "/hello"))
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("/x"))
	assert.Error(t, ValidatePath(""))
	assert.Error(t, ValidatePath("x"))
}

func TestMountVersionsDoNotAccumulate(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	e := helloEndpoint()
	e.Kind = KindREST
	e.Versions = []string{"v1", "v2", ""}
	reg.Add(e)

	_, routes := mount(t, reg, false)
	var paths []string
	for _, rt := range routes {
		paths = append(paths, rt.Path)
	}
	assert.Equal(t, []string{"/api/v1/hello", "/api/v2/hello", "/api/hello"}, paths)
}

func TestMountSkipsDebugOnly(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	e := helloEndpoint()
	e.DebugOnly = true
	reg.Add(e)

	ran := false
	reg.OnLoad(Hook{Name: "demo", DebugOnly: true, Run: func(context.Context) error { ran = true; return nil }})

	r, routes := mount(t, reg, false)
	assert.Empty(t, routes)
	assert.False(t, ran)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/hello", nil).Code)

	r, routes = mount(t, reg, true)
	assert.True(t, ran)
	assert.Len(t, routes, 2, "REST route plus /graphql")
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/hello", nil).Code)
}

func TestMountRejects(t *testing.T) {
	tests := []struct {
		name string
		eps  []Endpoint
	}{
		{"empty path", []Endpoint{{Name: "a", Kind: KindREST, Handler: hello}}},
		{"relative path", []Endpoint{{Name: "a", Kind: KindREST, Path: "hello", Handler: hello}}},
		{"no handler", []Endpoint{{Name: "a", Kind: KindREST, Path: "/a"}}},
		{"duplicate route", []Endpoint{
			{Name: "a", Kind: KindREST, Path: "/a", Handler: hello},
			{Name: "b", Kind: KindREST, Path: "/a", Handler: hello},
		}},
		{"duplicate field", []Endpoint{
			{Name: "a", Kind: KindGraphQL, Field: "x", Handler: hello},
			{Name: "b", Kind: KindGraphQL, Field: "x", Handler: hello},
		}},
		{"missing field", []Endpoint{{Name: "a", Kind: KindGraphQL, Handler: hello}}},
		{"mutation only", []Endpoint{{Name: "a", Kind: KindGraphQL, Field: "x", Operation: Mutation, Handler: hello}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(zaptest.NewLogger(t))
			reg.Add(tt.eps...)
			_, err := reg.Mount(context.Background(), gin.New(), "/api", true)
			assert.Error(t, err)
		})
	}
}

func TestHookErrorStopsMount(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	reg.OnLoad(Hook{Name: "broken", Run: func(context.Context) error { return errors.New("nope") }})
	_, err := reg.Mount(context.Background(), gin.New(), "/api", false)
	assert.ErrorContains(t, err, "broken")
}

func TestRESTDispatch(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	reg.Add(
		helloEndpoint(),
		Endpoint{Name: "empty", Path: "/empty", Handler: func(*Params) (any, error) { return nil, nil }},
		Endpoint{Name: "nilptr", Path: "/nilptr", Handler: func(*Params) (any, error) {
			var day *struct{ Header string }
			return day, nil
		}},
		Endpoint{Name: "nilmap", Path: "/nilmap", Handler: func(*Params) (any, error) {
			var m map[string]string
			return m, nil
		}},
		Endpoint{Name: "emptylist", Path: "/emptylist", Handler: func(*Params) (any, error) { return []string{}, nil }},
		Endpoint{Name: "bad", Path: "/bad", Handler: func(*Params) (any, error) { return nil, BadRequest("klasse fehlt") }},
		Endpoint{Name: "boom", Path: "/boom", Handler: func(*Params) (any, error) { return nil, pkgerrors.New("kaputt") }},
	)

	t.Run("production", func(t *testing.T) {
		r, _ := mount(t, reg, false)

		rec := do(r, http.MethodGet, "/api/hello?name=Moritz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `"Hello Moritz!"`, rec.Body.String())

		assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/api/empty", nil).Code)
		assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/api/nilptr", nil).Code)
		assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/api/nilmap", nil).Code)
		rec = do(r, http.MethodGet, "/api/emptylist", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())

		rec = do(r, http.MethodGet, "/api/bad", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"klasse fehlt"}`, rec.Body.String())

		rec = do(r, http.MethodGet, "/api/boom", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"message":"Internal Server Error. Please try again later.","simple_class_name":null,"stack_trace":null}`, rec.Body.String())
	})

	t.Run("debug", func(t *testing.T) {
		r, _ := mount(t, reg, true)
		rec := do(r, http.MethodGet, "/api/boom", nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		var body APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "kaputt", body.Message)
		require.NotNil(t, body.SimpleClassName)
		assert.Equal(t, "fundamental", *body.SimpleClassName)
		require.NotNil(t, body.StackTrace)
		assert.Contains(t, *body.StackTrace, "registry_test.go")
	})
}

func TestParams(t *testing.T) {
	type result struct {
		Count  int     `json:"count"`
		Ratio  float64 `json:"ratio"`
		Flag   bool    `json:"flag"`
		ID     string  `json:"id"`
		Form   string  `json:"form"`
		HasMis bool    `json:"has_missing"`
	}
	reg := NewRegistry(zaptest.NewLogger(t))
	reg.Add(Endpoint{
		Name:    "params",
		Methods: []string{http.MethodPost},
		Path:    "/items/:id",
		Handler: func(p *Params) (any, error) {
			var out result
			var err error
			if out.Count, err = ArgumentOrDefault(p, "count", 1, FromQuery); err != nil {
				return nil, err
			}
			if out.Ratio, err = ArgumentOrDefault(p, "ratio", 0.5, FromQuery); err != nil {
				return nil, err
			}
			if out.Flag, err = ArgumentOrDefault(p, "flag", false, FromQuery); err != nil {
				return nil, err
			}
			out.ID, _, _ = Argument[string](p, "id", FromPath)
			out.Form, _, _ = Argument[string](p, "kommentar", FromForm)
			_, out.HasMis, _ = Argument[int64](p, "missing", FromQuery)
			return out, nil
		},
	})
	r, _ := mount(t, reg, false)

	form := url.Values{"kommentar": {"hallo"}}
	req := httptest.NewRequest(http.MethodPost, "/api/items/42?count=7&flag=true", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":7,"ratio":0.5,"flag":true,"id":"42","form":"hallo","has_missing":false}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/items/1?count=viele", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "count")
}

func TestBindBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	handler := func(p *Params) (any, error) {
		var in payload
		if err := p.BindBody(&in); err != nil {
			if errors.Is(err, ErrBodyNotAllowed) {
				return nil, BadRequest("%v", err)
			}
			return nil, err
		}
		return in, nil
	}
	reg := NewRegistry(zaptest.NewLogger(t))
	reg.Add(Endpoint{
		Name:    "bind",
		Kind:    KindMulti,
		Methods: []string{http.MethodGet, http.MethodPut},
		Path:    "/bind",
		Field:   "bind",
		Args:    graphql.FieldConfigArgument{"name": &graphql.ArgumentConfig{Type: graphql.String}},
		Handler: func(p *Params) (any, error) {
			out, err := handler(p)
			if err != nil {
				return nil, err
			}
			return out.(payload).Name, nil
		},
	})
	r, _ := mount(t, reg, false)

	rec := do(r, http.MethodPut, "/api/bind", []byte(`{"name":"Anna"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"Anna"`, rec.Body.String())

	rec = do(r, http.MethodGet, "/api/bind", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/graphql", []byte(`{"query":"{ bind(name: \"Ben\") }"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"bind":"Ben"}}`, rec.Body.String())
}

func TestGraphQL(t *testing.T) {
	reg := NewRegistry(zaptest.NewLogger(t))
	reg.Add(
		helloEndpoint(),
		Endpoint{
			Name:      "petAnimal",
			Kind:      KindMulti,
			Methods:   []string{http.MethodPost},
			Path:      "/petAnimal",
			Field:     "petAnimal",
			Operation: Mutation,
			Handler:   func(*Params) (any, error) { return "purr", nil },
		},
		Endpoint{
			Name:    "fails",
			Kind:    KindGraphQL,
			Field:   "fails",
			Handler: func(*Params) (any, error) { return nil, errors.New("secret detail") },
		},
	)
	r, _ := mount(t, reg, false)

	rec := do(r, http.MethodPost, "/api/graphql", []byte(`{"query":"query($n: String) { hello(name: $n) }","variables":{"n":"Moritz"}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"hello":"Hello Moritz!"}}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/graphql", []byte(`{"query":"mutation { petAnimal }"}`))
	assert.JSONEq(t, `{"data":{"petAnimal":"purr"}}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/graphql", []byte(`{"query":"{ fails }"}`))
	assert.Contains(t, rec.Body.String(), productionErrorMessage)
	assert.NotContains(t, rec.Body.String(), "secret detail")

	rec = do(r, http.MethodPost, "/api/graphql", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
