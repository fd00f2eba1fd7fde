package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/ingest"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// IngestHandler exposes the inbound message pipeline to the host messaging
// dispatch.
type IngestHandler struct {
	pipeline *ingest.Pipeline
	metrics  *observability.Metrics
}

// NewIngestHandler constructs handler.
func NewIngestHandler(pipeline *ingest.Pipeline, metrics *observability.Metrics) *IngestHandler {
	return &IngestHandler{pipeline: pipeline, metrics: metrics}
}

// Handle POST /ingest. The response is always the pipeline's structured
// result, success or not; only an unparseable body gets the JSON error
// envelope.
func (h *IngestHandler) Handle(c *fiber.Ctx) error {
	var env ingest.Envelope
	if err := c.BodyParser(&env); err != nil {
		return apperrors.NewValidationError("invalid envelope", nil)
	}
	result := h.pipeline.Process(c.UserContext(), env)
	h.metrics.RecordIngest(env.Source, result.Status)
	return c.JSON(result)
}
