package handlers

import (
	"github.com/graphql-go/graphql"

	"github.com/industrieschule/vertretungsplan/internal/config"
	"github.com/industrieschule/vertretungsplan/internal/endpoint"
)

type siteView struct {
	CompatibilityDate string      `json:"compatibilityDate"`
	Devtools          bool        `json:"devtools"`
	Modules           []string    `json:"modules"`
	CSS               []string    `json:"css"`
	Head              config.Head `json:"head"`
	RuntimeConfig     runtimeView `json:"runtimeConfig"`
}

type runtimeView struct {
	Public map[string]string `json:"public"`
}

func siteEndpoint(src *config.SiteSource) endpoint.Endpoint {
	return endpoint.Endpoint{
		Name:     "site",
		Kind:     endpoint.KindREST,
		Path:     "/site",
		Versions: []string{"v1"},
		Handler: func(*endpoint.Params) (any, error) {
			s := src.Current()
			return siteView{
				CompatibilityDate: s.CompatibilityDate,
				Devtools:          s.Devtools,
				Modules:           s.Modules,
				CSS:               s.CSS,
				Head:              s.App.Head,
				RuntimeConfig:     runtimeView{Public: s.Public()},
			}, nil
		},
	}
}

func siteTitleEndpoint(src *config.SiteSource) endpoint.Endpoint {
	return endpoint.Endpoint{
		Name:     "siteTitle",
		Kind:     endpoint.KindMulti,
		Path:     "/site/title",
		Versions: []string{"v1"},
		Field:    "siteTitle",
		Args: graphql.FieldConfigArgument{
			"page": &graphql.ArgumentConfig{Type: graphql.String},
		},
		Handler: func(p *endpoint.Params) (any, error) {
			page, err := endpoint.ArgumentOrDefault(p, "page", "", endpoint.FromQuery)
			if err != nil {
				return nil, err
			}
			return src.Current().PageTitle(page), nil
		},
	}
}
