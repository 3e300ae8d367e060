package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-station/internal/metrics"
	"github.com/i474232898/weather-station/internal/store"
	"github.com/i474232898/weather-station/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-station",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1/weather")

	// Take a live snapshot, persist it and forecast from it.
	v1.Post("/observe", func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		obs, err := service.Observe(c.UserContext(), q.Location)
		if err != nil {
			return toHTTPError(err, q.Location)
		}

		c.Status(fiber.StatusCreated)
		if wantsText(c) {
			return sendText(c, renderObservation("Current Weather Data:", obs))
		}
		return c.JSON(toObservationJSON(obs))
	})

	v1.Get("/latest", func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		r, err := service.Latest(q.Location)
		if err != nil {
			return toHTTPError(err, q.Location)
		}

		if wantsText(c) {
			return sendText(c, renderReading("Latest data for "+q.Location+":", r))
		}
		return c.JSON(toReadingJSON(r))
	})

	v1.Post("/update", func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		r, err := service.Update(c.UserContext(), q.Location)
		if err != nil {
			return toHTTPError(err, q.Location)
		}

		c.Status(fiber.StatusCreated)
		if wantsText(c) {
			return sendText(c, renderReading("Updated data for "+q.Location+":", r))
		}
		return c.JSON(toReadingJSON(r))
	})

	v1.Get("/locations", func(c *fiber.Ctx) error {
		all, err := service.AllLatest()
		if err != nil {
			return toHTTPError(err, "")
		}

		if wantsText(c) {
			return sendText(c, renderAll(all))
		}
		out := make(map[string]readingJSON, len(all))
		for key, r := range all {
			out[key] = toReadingJSON(r)
		}
		return c.JSON(out)
	})

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		q, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		obs, err := service.Forecast(q.Location)
		if err != nil {
			return toHTTPError(err, q.Location)
		}

		if wantsText(c) {
			return sendText(c, "Prediction: "+obs.Message+"\n")
		}
		return c.JSON(toObservationJSON(obs))
	})
}

// ErrorHandler renders every error as a JSON body.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// Metrics records request counts and latency per matched route.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		metrics.ObserveHTTPRequest(c.Route().Path, c.Method(), status, time.Since(start))
		return err
	}
}

// locationQuery holds the query parameter identifying a location.
type locationQuery struct {
	Location string `validate:"required"`
}

// parseLocationQuery rejects blank locations but keeps the text as typed.
func parseLocationQuery(c *fiber.Ctx) (locationQuery, error) {
	raw := utils.CopyString(c.Query("location"))
	if err := validate.Struct(locationQuery{Location: strings.TrimSpace(raw)}); err != nil {
		return locationQuery{}, errors.New("please enter a location")
	}
	return locationQuery{Location: raw}, nil
}

func toHTTPError(err error, location string) error {
	switch {
	case errors.Is(err, weather.ErrInvalidLocation):
		return fiber.NewError(fiber.StatusBadRequest, "please enter a location")
	case errors.Is(err, store.ErrNotFound):
		if location == "" {
			return fiber.NewError(fiber.StatusNotFound, "no weather data found")
		}
		return fiber.NewError(fiber.StatusNotFound, "no data found for "+location)
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to access weather log")
	}
}

func wantsText(c *fiber.Ctx) bool {
	return strings.EqualFold(c.Query("format"), "text")
}

func sendText(c *fiber.Ctx, body string) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(body)
}
