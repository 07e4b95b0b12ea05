package endpoint

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"
)

type ginContextKey struct{}

type graphQLRequest struct {
	Query         string         `json:"query" binding:"required"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
}

func buildSchema(queries, mutations graphql.Fields) (graphql.Schema, error) {
	cfg := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: queries}),
	}
	if len(mutations) > 0 {
		cfg.Mutation = graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: mutations})
	}
	return graphql.NewSchema(cfg)
}

func graphQLField(e Endpoint, log *zap.Logger, debugMode bool) *graphql.Field {
	out := e.Output
	if out == nil {
		out = graphql.String
	}
	return &graphql.Field{
		Name:        e.Field,
		Type:        out,
		Args:        e.Args,
		Description: e.Name,
		Resolve: func(rp graphql.ResolveParams) (interface{}, error) {
			c, _ := rp.Context.Value(ginContextKey{}).(*gin.Context)
			if c == nil {
				return nil, errors.New("request context unavailable")
			}
			resp, err := e.Handler(newGraphQLParams(c, rp.Args))
			if err != nil {
				var apiErr *Error
				if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
					return nil, apiErr
				}
				log.Error("graphql resolver failed", zap.String("endpoint", e.Name), zap.String("field", e.Field), zap.Error(err))
				if debugMode {
					return nil, err
				}
				return nil, errors.New(productionErrorMessage)
			}
			return resp, nil
		},
	}
}

func graphQLHandler(schema graphql.Schema) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req graphQLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx := context.WithValue(c.Request.Context(), ginContextKey{}, c)
		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        ctx,
		})
		c.JSON(http.StatusOK, result)
	}
}
