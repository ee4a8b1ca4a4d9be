package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dukex/relay/pkg/execution"
	"github.com/dukex/relay/pkg/persistence"
	"github.com/dukex/relay/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		return conflict(c, err.Error())

	case errors.Is(err, execution.ErrExecutionFinished):
		return conflict(c, "execution already finished")

	case errors.Is(err, persistence.ErrWorkflowNotFound):
		return notFound(c, "workflow not found")

	case errors.Is(err, persistence.ErrExecutionNotFound):
		return notFound(c, "execution not found")

	default:
		return internalError(c, err)
	}
}
