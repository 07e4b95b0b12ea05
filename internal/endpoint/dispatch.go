package endpoint

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

const productionErrorMessage = "Internal Server Error. Please try again later."

// APIError is the body of a failed handler call. Details are only filled in
// debug mode.
type APIError struct {
	Message         string  `json:"message"`
	SimpleClassName *string `json:"simple_class_name"`
	StackTrace      *string `json:"stack_trace"`
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

func newAPIError(err error, debugMode bool) APIError {
	if !debugMode {
		return APIError{Message: productionErrorMessage}
	}
	name := typeName(err)
	stack := errorStack(err)
	return APIError{Message: err.Error(), SimpleClassName: &name, StackTrace: &stack}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// errorStack prefers the stack recorded by pkg/errors and falls back to the
// current goroutine's stack.
func errorStack(err error) string {
	type causer interface{ Cause() error }
	for e := err; e != nil; {
		if _, ok := e.(stackTracer); ok {
			return fmt.Sprintf("%+v", err)
		}
		if c, ok := e.(causer); ok {
			e = c.Cause()
			continue
		}
		e = errors.Unwrap(e)
	}
	return string(debug.Stack())
}

// restHandler adapts a HandlerFunc to gin.
func restHandler(e Endpoint, log *zap.Logger, debugMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Debug("handler called", zap.String("endpoint", e.Name), zap.String("path", c.FullPath()))
		resp, err := e.Handler(newRESTParams(c))
		if err != nil {
			writeHandlerError(c, e.Name, err, log, debugMode)
			return
		}
		if isNil(resp) {
			log.Debug("handler returned nil, responding 204", zap.String("endpoint", e.Name))
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// isNil also catches typed nils such as a (*T)(nil) stored in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func writeHandlerError(c *gin.Context, name string, err error, log *zap.Logger, debugMode bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status > 0 && apiErr.Status < http.StatusInternalServerError {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr.Message})
		return
	}
	log.Error("handler failed", zap.String("endpoint", name), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, newAPIError(err, debugMode))
}
