package handlers

import (
	"time"

	"github.com/graphql-go/graphql"
	"gorm.io/gorm"

	"github.com/industrieschule/vertretungsplan/internal/endpoint"
	"github.com/industrieschule/vertretungsplan/internal/models"
	"github.com/industrieschule/vertretungsplan/internal/plan"
)

var lessonType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Lesson",
	Fields: graphql.Fields{
		"id":               &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"position":         &graphql.Field{Type: graphql.Int},
		"stunde":           &graphql.Field{Type: graphql.String},
		"massnahme":        &graphql.Field{Type: graphql.String},
		"verantwortlicher": &graphql.Field{Type: graphql.String},
		"klasse":           &graphql.Field{Type: graphql.String},
	},
})

var dayType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Day",
	Fields: graphql.Fields{
		"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"date":      &graphql.Field{Type: graphql.String},
		"label":     &graphql.Field{Type: graphql.String},
		"header":    &graphql.Field{Type: graphql.String},
		"footer":    &graphql.Field{Type: graphql.String},
		"block":     &graphql.Field{Type: graphql.String},
		"published": &graphql.Field{Type: graphql.Boolean},
		"updatedAt": &graphql.Field{
			Type: graphql.DateTime,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				if d, ok := p.Source.(plan.DayView); ok {
					return d.UpdatedAt, nil
				}
				return nil, nil
			},
		},
		"lessons": &graphql.Field{Type: graphql.NewList(lessonType)},
	},
})

// planEndpoint lists published days from today on. klasse limits lessons to
// one class (lessons for ALLE always match); from/to are yyyy-mm-dd.
func planEndpoint(db *gorm.DB) endpoint.Endpoint {
	return endpoint.Endpoint{
		Name:     "plan",
		Kind:     endpoint.KindMulti,
		Path:     "/plan",
		Versions: []string{"v1"},
		Field:    "plan",
		Output:   graphql.NewList(dayType),
		Args: graphql.FieldConfigArgument{
			"klasse": &graphql.ArgumentConfig{Type: graphql.String},
			"from":   &graphql.ArgumentConfig{Type: graphql.String},
			"to":     &graphql.ArgumentConfig{Type: graphql.String},
		},
		Handler: func(p *endpoint.Params) (any, error) {
			f, err := planFilter(p, time.Now())
			if err != nil {
				return nil, err
			}
			days, err := plan.Days(p.Context().Request.Context(), db, f)
			if err != nil {
				return nil, err
			}
			return plan.DayViews(days), nil
		},
	}
}

func planFilter(p *endpoint.Params, now time.Time) (plan.Filter, error) {
	klasse, err := endpoint.ArgumentOrDefault(p, "klasse", "", endpoint.FromQuery)
	if err != nil {
		return plan.Filter{}, err
	}
	f := plan.Filter{Klasse: klasse, From: models.NormalizeDate(now)}
	if from, ok, err := endpoint.Argument[string](p, "from", endpoint.FromQuery); err != nil {
		return plan.Filter{}, err
	} else if ok {
		if f.From, err = plan.ParseDate(from); err != nil {
			return plan.Filter{}, endpoint.BadRequest("invalid from date %q, want yyyy-mm-dd", from)
		}
	}
	if to, ok, err := endpoint.Argument[string](p, "to", endpoint.FromQuery); err != nil {
		return plan.Filter{}, err
	} else if ok {
		if f.To, err = plan.ParseDate(to); err != nil {
			return plan.Filter{}, endpoint.BadRequest("invalid to date %q, want yyyy-mm-dd", to)
		}
	}
	if !f.To.IsZero() && f.To.Before(f.From) {
		return plan.Filter{}, endpoint.BadRequest("to must not be before from")
	}
	return f, nil
}
