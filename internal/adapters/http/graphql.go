package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/trajprep/internal/core/domain"
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

	sampleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PointSample",
		Fields: graphql.Fields{
			"location": &graphql.Field{Type: geoPointType},
			"time":     &graphql.Field{Type: graphql.DateTime},
		},
	})

	trajectoryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trajectory",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"user_id":    &graphql.Field{Type: graphql.String},
			"name":       &graphql.Field{Type: graphql.String},
			"num_points": &graphql.Field{Type: graphql.Int},
			"started_at": &graphql.Field{Type: graphql.DateTime},
			"ended_at":   &graphql.Field{Type: graphql.DateTime},
			"created_at": &graphql.Field{Type: graphql.DateTime},
			"samples":    &graphql.Field{Type: graphql.NewList(sampleType)},
		},
	})

	trajectoryPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TrajectoryPage",
		Fields: graphql.Fields{
			"items": &graphql.Field{Type: graphql.NewList(trajectoryType)},
			"total": &graphql.Field{Type: graphql.Int},
		},
	})

	speedProfileType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SpeedProfile",
		Fields: graphql.Fields{
			"trajectory_id":    &graphql.Field{Type: graphql.String},
			"speeds":           &graphql.Field{Type: graphql.NewList(graphql.Float)},
			"max_speed":        &graphql.Field{Type: graphql.Float},
			"mean_speed":       &graphql.Field{Type: graphql.Float},
			"total_distance":   &graphql.Field{Type: graphql.Float},
			"duration_seconds": &graphql.Field{Type: graphql.Int},
			"computed_at":      &graphql.Field{Type: graphql.DateTime},
		},
	})

	pointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "GeoPointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	sampleInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "PointSampleInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon":  &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"time": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.DateTime)},
		},
	})

	floatList := graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.Float)))

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"distance": &graphql.Field{
				Type:        graphql.Float,
				Description: "Great-circle distance in meters",
				Args: graphql.FieldConfigArgument{
					"from": &graphql.ArgumentConfig{Type: graphql.NewNonNull(pointInput)},
					"to":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(pointInput)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from, err := argPoint(p.Args["from"])
					if err != nil {
						return nil, err
					}
					to, err := argPoint(p.Args["to"])
					if err != nil {
						return nil, err
					}
					return deps.Geo.Distance(from, to)
				},
			},
			"timeDelta": &graphql.Field{
				Type:        graphql.Int,
				Description: "Absolute difference between two timestamps in whole seconds",
				Args: graphql.FieldConfigArgument{
					"t1": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.DateTime)},
					"t2": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.DateTime)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t1, err := argTime(p.Args["t1"])
					if err != nil {
						return nil, err
					}
					t2, err := argTime(p.Args["t2"])
					if err != nil {
						return nil, err
					}
					return deps.Geo.TimeDelta(t1, t2), nil
				},
			},
			"speed": &graphql.Field{
				Type:        graphql.Float,
				Description: "Speed in m/s between two timed samples",
				Args: graphql.FieldConfigArgument{
					"from": &graphql.ArgumentConfig{Type: graphql.NewNonNull(sampleInput)},
					"to":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(sampleInput)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from, err := argSample(p.Args["from"])
					if err != nil {
						return nil, err
					}
					to, err := argSample(p.Args["to"])
					if err != nil {
						return nil, err
					}
					return deps.Geo.Speed(from, to)
				},
			},
			"centroid": &graphql.Field{
				Type:        geoPointType,
				Description: "Spherical centroid of a set of points",
				Args: graphql.FieldConfigArgument{
					"lats": &graphql.ArgumentConfig{Type: floatList},
					"lons": &graphql.ArgumentConfig{Type: floatList},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lats, err := argFloats(p.Args["lats"])
					if err != nil {
						return nil, err
					}
					lons, err := argFloats(p.Args["lons"])
					if err != nil {
						return nil, err
					}
					return deps.Geo.Centroid(domain.PointSequence{Lats: lats, Lons: lons})
				},
			},
			"trajectory": &graphql.Field{
				Type:        trajectoryType,
				Description: "Get a stored trajectory by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Trajectories.Get(p.Context, p.Args["id"].(string))
				},
			},
			"trajectories": &graphql.Field{
				Type:        trajectoryPageType,
				Description: "List stored trajectories",
				Args: graphql.FieldConfigArgument{
					"user_id": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"offset":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					userID, _ := p.Args["user_id"].(string)
					offset, _ := p.Args["offset"].(int)
					limit, _ := p.Args["limit"].(int)
					items, total, err := deps.Trajectories.List(p.Context, userID, offset, limit)
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{"items": items, "total": total}, nil
				},
			},
			"speedProfile": &graphql.Field{
				Type:        speedProfileType,
				Description: "Point-to-point speeds of a stored trajectory",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Trajectories.SpeedProfile(p.Context, p.Args["id"].(string))
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func argPoint(v interface{}) (domain.GeoPoint, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("expected point object: %w", domain.ErrInvalidArgument)
	}
	lat, latOK := m["lat"].(float64)
	lon, lonOK := m["lon"].(float64)
	if !latOK || !lonOK {
		return domain.GeoPoint{}, fmt.Errorf("point needs lat and lon: %w", domain.ErrInvalidArgument)
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

func argSample(v interface{}) (domain.PointSample, error) {
	loc, err := argPoint(v)
	if err != nil {
		return domain.PointSample{}, err
	}
	t, err := argTime(v.(map[string]interface{})["time"])
	if err != nil {
		return domain.PointSample{}, err
	}
	return domain.PointSample{Location: loc, Time: t}, nil
}

func argTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected RFC3339 timestamp: %w", domain.ErrInvalidArgument)
}

func argFloats(v interface{}) ([]float64, error) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected list of floats: %w", domain.ErrInvalidArgument)
	}
	out := make([]float64, len(raw))
	for i, x := range raw {
		switch f := x.(type) {
		case float64:
			out[i] = f
		case int:
			out[i] = float64(f)
		default:
			return nil, fmt.Errorf("element %d is not a number: %w", i, domain.ErrInvalidArgument)
		}
	}
	return out, nil
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
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
