// Package handlers declares the endpoints mounted through the endpoint
// registry.
package handlers

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/config"
	"github.com/industrieschule/vertretungsplan/internal/endpoint"
)

// Deps are the services endpoint handlers may use.
type Deps struct {
	DB   *gorm.DB
	Site *config.SiteSource
	Log  *zap.Logger
}

// Register adds every endpoint, socket and load hook to reg.
func Register(reg *endpoint.Registry, d Deps) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	reg.Add(
		helloEndpoint(),
		petAnimalEndpoint(),
		planEndpoint(d.DB),
		siteEndpoint(d.Site),
		siteTitleEndpoint(d.Site),
	)
	reg.AddSocket(wsDemoSocket(d.Log))
	reg.OnLoad(demoSeedHook(d.DB, d.Log))
}
