package endpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Source int

const (
	SourceREST Source = iota
	SourceGraphQL
)

// ArgFrom selects where a REST argument is read from. GraphQL requests ignore it.
type ArgFrom int

const (
	FromQuery ArgFrom = iota
	FromPath
	FromForm
)

// ErrBodyNotAllowed is returned by BindBody for methods without a body.
var ErrBodyNotAllowed = errors.New("unable to read body: only POST, PUT and PATCH carry one")

// Params is the request view handed to endpoint handlers.
type Params struct {
	ctx    *gin.Context
	source Source
	args   map[string]any
}

func newRESTParams(c *gin.Context) *Params {
	return &Params{ctx: c, source: SourceREST}
}

func newGraphQLParams(c *gin.Context, args map[string]any) *Params {
	return &Params{ctx: c, source: SourceGraphQL, args: args}
}

func (p *Params) Source() Source             { return p.source }
func (p *Params) Context() *gin.Context      { return p.ctx }
func (p *Params) UserAgent() string          { return p.ctx.Request.UserAgent() }
func (p *Params) RemoteIP() string           { return p.ctx.ClientIP() }
func (p *Params) Get(key string) (any, bool) { return p.ctx.Get(key) }

func (p *Params) raw(name string, from ArgFrom) (any, bool) {
	if p.source == SourceGraphQL {
		v, ok := p.args[name]
		if !ok || v == nil {
			return nil, false
		}
		return v, true
	}
	switch from {
	case FromPath:
		for _, param := range p.ctx.Params {
			if param.Key == name {
				return param.Value, true
			}
		}
		return nil, false
	case FromForm:
		v, ok := p.ctx.GetPostForm(name)
		if !ok {
			return nil, false
		}
		return v, true
	default:
		v, ok := p.ctx.GetQuery(name)
		if !ok {
			return nil, false
		}
		return v, true
	}
}

// ArgType lists the types Argument can convert to.
type ArgType interface {
	string | int | int64 | float32 | float64 | bool
}

// Argument reads a named argument. ok is false when it is absent; err is set
// when it is present but cannot be converted to T.
func Argument[T ArgType](p *Params, name string, from ArgFrom) (value T, ok bool, err error) {
	raw, present := p.raw(name, from)
	if !present {
		return value, false, nil
	}
	if v, direct := raw.(T); direct {
		return v, true, nil
	}
	value, err = convert[T](raw)
	if err != nil {
		return value, true, BadRequest("argument %q: %v", name, err)
	}
	return value, true, nil
}

// ArgumentOrDefault is Argument with a fallback for absent arguments.
func ArgumentOrDefault[T ArgType](p *Params, name string, def T, from ArgFrom) (T, error) {
	v, ok, err := Argument[T](p, name, from)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

func convert[T ArgType](raw any) (T, error) {
	var zero T
	s, isString := raw.(string)
	if !isString {
		s = fmt.Sprint(raw)
	}
	var out any
	var err error
	switch any(zero).(type) {
	case string:
		out = s
	case int:
		out, err = strconv.Atoi(s)
	case int64:
		out, err = strconv.ParseInt(s, 10, 64)
	case float32:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		out = float32(f)
	case float64:
		out, err = strconv.ParseFloat(s, 64)
	case bool:
		out, err = strconv.ParseBool(s)
	default:
		return zero, fmt.Errorf("unsupported conversion to %T", zero)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

// BindBody decodes the JSON body (REST) or the GraphQL arguments into dst.
func (p *Params) BindBody(dst any) error {
	if p.source == SourceGraphQL {
		raw, err := json.Marshal(p.args)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, dst)
	}
	switch p.ctx.Request.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return ErrBodyNotAllowed
	}
	if err := json.NewDecoder(p.ctx.Request.Body).Decode(dst); err != nil {
		return BadRequest("invalid body: %v", err)
	}
	return nil
}
