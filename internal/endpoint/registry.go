package endpoint

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

// Route describes one mounted HTTP route.
type Route struct {
	Method   string
	Path     string
	Endpoint string
}

// Registry collects endpoint declarations and mounts them on a router.
type Registry struct {
	endpoints []Endpoint
	sockets   []Socket
	hooks     []Hook
	log       *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log}
}

func (r *Registry) Add(eps ...Endpoint)   { r.endpoints = append(r.endpoints, eps...) }
func (r *Registry) AddSocket(s ...Socket) { r.sockets = append(r.sockets, s...) }
func (r *Registry) OnLoad(h ...Hook)      { r.hooks = append(r.hooks, h...) }

// ValidatePath checks a declared endpoint path.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("API path cannot be empty")
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("API path %q must start with \"/\"", path)
	}
	return nil
}

// ConstructPath joins prefix, optional version segment and path.
func ConstructPath(prefix, version, path string) string {
	if version == "" {
		return prefix + path
	}
	return prefix + "/" + strings.Trim(version, "/") + path
}

func versionsOf(v []string) []string {
	if len(v) == 0 {
		return []string{""}
	}
	return v
}

// Mount runs load hooks, then registers every endpoint, the GraphQL schema
// and the sockets under prefix. Debug-only items are skipped unless debugMode.
func (r *Registry) Mount(ctx context.Context, router gin.IRoutes, prefix string, debugMode bool) ([]Route, error) {
	for _, h := range r.hooks {
		if h.DebugOnly && !debugMode {
			continue
		}
		r.log.Info("running load hook", zap.String("hook", h.Name))
		if err := h.Run(ctx); err != nil {
			return nil, fmt.Errorf("hook %s: %w", h.Name, err)
		}
	}

	var routes []Route
	seen := map[string]string{}
	addRoute := func(method, path, name string, handlers ...gin.HandlerFunc) error {
		key := method + " " + path
		if other, dup := seen[key]; dup {
			return fmt.Errorf("%s: route %s already registered by %s", name, key, other)
		}
		seen[key] = name
		router.Handle(method, path, handlers...)
		routes = append(routes, Route{Method: method, Path: path, Endpoint: name})
		return nil
	}

	queries := graphql.Fields{}
	mutations := graphql.Fields{}

	for _, e := range r.endpoints {
		if e.DebugOnly && !debugMode {
			continue
		}
		if e.Handler == nil {
			return nil, fmt.Errorf("%s: no handler", e.Name)
		}

		if e.servesHTTP() {
			if err := ValidatePath(e.Path); err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name, err)
			}
			methods := e.Methods
			if len(methods) == 0 {
				methods = []string{http.MethodGet}
			}
			handlers := append(append([]gin.HandlerFunc{}, e.Middleware...), restHandler(e, r.log, debugMode))
			for _, version := range versionsOf(e.Versions) {
				path := ConstructPath(prefix, version, e.Path)
				for _, method := range methods {
					if err := addRoute(strings.ToUpper(method), path, e.Name, handlers...); err != nil {
						return nil, err
					}
					r.log.Info("endpoint loaded", zap.String("endpoint", e.Name), zap.Stringer("kind", e.Kind),
						zap.String("method", method), zap.String("path", path))
				}
			}
		}

		if e.servesGraphQL() {
			if e.Field == "" {
				return nil, fmt.Errorf("%s: GraphQL field name is empty", e.Name)
			}
			target := queries
			if e.Operation == Mutation {
				target = mutations
			}
			if _, dup := target[e.Field]; dup {
				return nil, fmt.Errorf("%s: GraphQL %s field %q already registered", e.Name, e.Operation, e.Field)
			}
			target[e.Field] = graphQLField(e, r.log, debugMode)
			r.log.Info("endpoint registered on GraphQL", zap.String("endpoint", e.Name),
				zap.Stringer("operation", e.Operation), zap.String("field", e.Field))
		}
	}

	if len(queries) > 0 {
		schema, err := buildSchema(queries, mutations)
		if err != nil {
			return nil, fmt.Errorf("build GraphQL schema: %w", err)
		}
		path := prefix + "/graphql"
		if err := addRoute(http.MethodPost, path, "graphql", graphQLHandler(schema)); err != nil {
			return nil, err
		}
		r.log.Info("GraphQL registered", zap.String("path", path))
	} else if len(mutations) > 0 {
		return nil, fmt.Errorf("GraphQL mutations need at least one query field")
	}

	for _, s := range r.sockets {
		if s.DebugOnly && !debugMode {
			continue
		}
		if s.Handler == nil {
			return nil, fmt.Errorf("%s: no socket handler", s.Name)
		}
		if err := ValidatePath(s.Path); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		for _, version := range versionsOf(s.Versions) {
			path := ConstructPath(prefix, version, s.Path)
			if err := addRoute(http.MethodGet, path, s.Name, socketHandler(s, r.log)); err != nil {
				return nil, err
			}
			r.log.Info("websocket endpoint loaded", zap.String("endpoint", s.Name), zap.String("path", path))
		}
	}
	return routes, nil
}
