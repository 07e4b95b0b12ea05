// Package endpoint mounts REST, GraphQL and websocket endpoints that are
// declared once and registered explicitly at start-up.
package endpoint

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
)

type Kind int

const (
	// KindREST is served over HTTP only.
	KindREST Kind = iota
	// KindMulti is served over HTTP and as a GraphQL field.
	KindMulti
	// KindGraphQL is a GraphQL field only.
	KindGraphQL
)

func (k Kind) String() string {
	switch k {
	case KindREST:
		return "REST"
	case KindMulti:
		return "Multi"
	case KindGraphQL:
		return "GraphQL"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Operation int

const (
	Query Operation = iota
	Mutation
)

func (o Operation) String() string {
	if o == Mutation {
		return "MUTATION"
	}
	return "QUERY"
}

// HandlerFunc produces the response value for one request. A nil value with a
// nil error means "no content".
type HandlerFunc func(p *Params) (any, error)

// Endpoint declares one handler and where it is reachable.
type Endpoint struct {
	Name string
	Kind Kind

	// HTTP side (REST, Multi)
	Methods []string
	Path    string
	// Versions are path segments inserted after the prefix; "" means none.
	Versions   []string
	Middleware []gin.HandlerFunc

	// GraphQL side (Multi, GraphQL)
	Field     string
	Operation Operation
	Output    graphql.Output
	Args      graphql.FieldConfigArgument

	DebugOnly bool
	Handler   HandlerFunc
}

func (e Endpoint) servesHTTP() bool    { return e.Kind == KindREST || e.Kind == KindMulti }
func (e Endpoint) servesGraphQL() bool { return e.Kind == KindMulti || e.Kind == KindGraphQL }

// Hook runs once while the registry is mounted, before any route exists.
type Hook struct {
	Name      string
	DebugOnly bool
	Run       func(ctx context.Context) error
}

// Error lets a handler choose the HTTP status of a failure.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func BadRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}
