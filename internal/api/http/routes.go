package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/i474232898/marine-conditions/internal/store"
	"github.com/i474232898/marine-conditions/internal/weather"
)

var validate = validator.New()

// Forecaster answers forecast requests; *weather.Service satisfies it.
type Forecaster interface {
	GetForecast(ctx context.Context, req weather.ForecastRequest) (*weather.ForecastResult, error)
}

// StatsSource exposes cache counters; *store.ForecastCache satisfies it.
type StatsSource interface {
	Stats() store.Stats
}

// ErrorHandler renders every error as {"error": "..."}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. stats may be nil.
func RegisterRoutes(app *fiber.App, service Forecaster, stats StatsSource) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "marine-conditions",
		})
	})

	app.Get("/weather-info", func(c *fiber.Ctx) error {
		q, err := parseForecastQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := service.GetForecast(c.UserContext(), q.toRequest())
		if err != nil {
			switch {
			case errors.Is(err, weather.ErrLocationNotFound):
				return fiber.NewError(fiber.StatusBadRequest, "could not find location: "+q.Location)
			case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
				return fiber.NewError(fiber.StatusGatewayTimeout, "forecast request timed out")
			default:
				log.WithField("location", q.Location).Errorf("forecast failed: %v", err)
				return fiber.NewError(fiber.StatusBadGateway, "failed to fetch forecast data")
			}
		}

		return c.JSON(result)
	})

	if stats != nil {
		app.Get("/cache/stats", func(c *fiber.Ctx) error {
			return c.JSON(stats.Stats())
		})
	}
}

// forecastQuery holds query parameters of /weather-info.
type forecastQuery struct {
	Location string `validate:"required"`
	Days     int
}

func (q forecastQuery) toRequest() weather.ForecastRequest {
	return weather.ForecastRequest{
		LocationQuery: q.Location,
		Days:          weather.ClampDays(q.Days),
	}
}

// parseForecastQuery reads location and days. Missing or non-numeric days means
// one day; out-of-range values are clamped, not rejected.
func parseForecastQuery(c *fiber.Ctx) (forecastQuery, error) {
	q := forecastQuery{
		Location: strings.TrimSpace(c.Query("location")),
		Days:     c.QueryInt("days", weather.MinDays),
	}

	if err := validate.Struct(q); err != nil {
		return q, errors.New("location query parameter is required")
	}
	return q, nil
}
