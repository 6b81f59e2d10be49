package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/makeasinger/musicengine/internal/apperr"
	"github.com/makeasinger/musicengine/internal/middleware"
	"github.com/makeasinger/musicengine/internal/model"
	"github.com/makeasinger/musicengine/internal/service"
	"github.com/makeasinger/musicengine/pkg/response"
)

type JobHandler struct {
	service *service.JobService
}

func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{service: svc}
}

// Generate handles POST /api/generate
func (h *JobHandler) Generate(c *fiber.Ctx) error {
	var spec model.MusicSpec
	if err := c.BodyParser(&spec); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	result, err := h.service.Submit(c.Context(), middleware.GetUserID(c), spec)
	if err != nil {
		var validationErr *apperr.ValidationError
		if errors.As(err, &validationErr) {
			return response.ValidationError(c, "Validation failed", validationErr.Fields)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/status/:jobId
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if service.IsNotFound(err) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Download handles GET /api/download/:jobId/:name
func (h *JobHandler) Download(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	name := c.Params("name")
	if jobID == "" || name == "" {
		return response.ValidationError(c, "Job ID and output name are required", nil)
	}

	path, err := h.service.OutputPath(c.Context(), jobID, name)
	if err != nil {
		switch {
		case service.IsNotFound(err):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, service.ErrJobNotCompleted):
			return response.ValidationError(c, "Job not completed yet", nil)
		case errors.Is(err, service.ErrOutputNotFound):
			return response.NotFound(c, "File not found")
		}
		return response.ServiceError(c, err.Error())
	}

	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Download(path, fmt.Sprintf("%s_%s.wav", jobID, name))
}
