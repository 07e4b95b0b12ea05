package handlers

import (
	"net/http"

	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/industrieschule/vertretungsplan/internal/endpoint"
)

// helloEndpoint greets over REST (GET /hello?name=) and GraphQL (hello).
func helloEndpoint() endpoint.Endpoint {
	return endpoint.Endpoint{
		Name:      "hello",
		Kind:      endpoint.KindMulti,
		Methods:   []string{http.MethodGet},
		Path:      "/hello",
		Field:     "hello",
		Operation: endpoint.Query,
		Args: graphql.FieldConfigArgument{
			"name": &graphql.ArgumentConfig{Type: graphql.String},
		},
		DebugOnly: true,
		Handler: func(p *endpoint.Params) (any, error) {
			name, _, err := endpoint.Argument[string](p, "name", endpoint.FromQuery)
			if err != nil {
				return nil, err
			}
			return "Hello " + name + "!", nil
		},
	}
}

func petAnimalEndpoint() endpoint.Endpoint {
	return endpoint.Endpoint{
		Name:      "petAnimal",
		Kind:      endpoint.KindMulti,
		Methods:   []string{http.MethodPost, http.MethodGet},
		Path:      "/petAnimal",
		Field:     "petAnimal",
		Operation: endpoint.Mutation,
		DebugOnly: true,
		Handler: func(*endpoint.Params) (any, error) {
			return "purr purr ~ The animal likes this", nil
		},
	}
}

type wsDemo struct {
	log *zap.Logger
}

func (h wsDemo) OnConnect(conn *endpoint.SocketConn) {
	h.log.Info("websocket demo connected", zap.String("host", conn.Host()))
	_ = conn.Send("Hey from Hello plugin!")
}

func (h wsDemo) OnMessage(conn *endpoint.SocketConn, message string) {
	h.log.Info("websocket demo echo", zap.String("message", message))
	_ = conn.Send(message)
}

func (h wsDemo) OnBinaryMessage(*endpoint.SocketConn, []byte) {
	h.log.Info("websocket demo received binary message")
}

func (h wsDemo) OnClose(conn *endpoint.SocketConn, code int, reason string) {
	h.log.Info("websocket demo closed", zap.String("host", conn.Host()), zap.Int("code", code), zap.String("reason", reason))
}

func (h wsDemo) OnError(conn *endpoint.SocketConn, err error) {
	h.log.Info("websocket demo error", zap.String("host", conn.Host()), zap.Error(err))
}

func wsDemoSocket(log *zap.Logger) endpoint.Socket {
	return endpoint.Socket{
		Name:      "wsdemo",
		Path:      "/wsdemo",
		Versions:  []string{"v1"},
		DebugOnly: true,
		Handler:   wsDemo{log: log},
	}
}
