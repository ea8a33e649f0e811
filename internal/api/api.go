// Package api exposes a read-only HTTP view of a running engine.
package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	"jobflow/internal/engine"
	"jobflow/internal/model"
	"jobflow/internal/store"
)

// Source is what the API reads from. *engine.Engine satisfies it.
type Source interface {
	Jobs() []model.Job
	Job(id string) (model.Job, bool)
	Stats() engine.Stats
}

type jobView struct {
	model.Job
	State string `json:"state"`
}

func view(j model.Job) jobView {
	return jobView{Job: j, State: store.State(j)}
}

// New builds the fiber app. Callers own Listen and Shutdown.
func New(src Source) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "jobflow",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(src.Stats())
	})
	app.Get("/jobs", listJobs(src))
	app.Get("/jobs/:id", getJob(src))

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "route not found")
	})
	return app
}

func listJobs(src Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := strings.ToLower(c.Query("status"))
		switch state {
		case "", string(model.StatusPending), string(model.StatusFailed), store.StateRetrying:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "unknown status "+state)
		}

		out := []jobView{}
		for _, j := range src.Jobs() {
			v := view(j)
			if state == "" || v.State == state || string(j.Status) == state {
				out = append(out, v)
			}
		}
		return c.JSON(out)
	}
}

func getJob(src Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		j, ok := src.Job(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "job not found")
		}
		return c.JSON(view(j))
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("request error")
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
