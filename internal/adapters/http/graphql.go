package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/basobaas/plotline/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	plotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Plot",
		Fields: graphql.Fields{
			"id":                   &graphql.Field{Type: graphql.String},
			"boundary":             &graphql.Field{Type: graphql.NewList(geoPointType)},
			"centroid":             &graphql.Field{Type: geoPointType},
			"area_sq_meters":       &graphql.Field{Type: graphql.Float},
			"area_sq_feet":         &graphql.Field{Type: graphql.Float},
			"coverage_percent":     &graphql.Field{Type: graphql.Float},
			"floors":               &graphql.Field{Type: graphql.Int},
			"buildable_area_sq_ft": &graphql.Field{Type: graphql.Float},
			"total_built_up_sq_ft": &graphql.Field{Type: graphql.Float},
			"city":                 &graphql.Field{Type: graphql.String},
			"state":                &graphql.Field{Type: graphql.String},
			"postal_code":          &graphql.Field{Type: graphql.String},
			"location_resolved":    &graphql.Field{Type: graphql.Boolean},
			"distance":             &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"plot": &graphql.Field{
				Type:        plotType,
				Description: "Get a saved plot by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Plots.GetByID(p.Context, id)
				},
			},
			"plots": &graphql.Field{
				Type:        graphql.NewList(plotType),
				Description: "List saved plots, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					offset := p.Args["offset"].(int)
					limit := p.Args["limit"].(int)
					plots, _, err := deps.Plots.List(p.Context, offset, limit)
					return plots, err
				},
			},
			"plotsNearby": &graphql.Field{
				Type:        graphql.NewList(plotType),
				Description: "Find saved plots near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 1000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Plots.FindNearby(p.Context, lat, lon, radius, limit)
				},
			},
			"coveragePresets": &graphql.Field{
				Type:        graphql.NewList(graphql.Float),
				Description: "Coverage percentages offered by the buildable-area selector",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return domain.CoveragePresets, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
