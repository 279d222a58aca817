package handler

import (
	"errors"
	"net/http"

	"agent-service/pkg/ingest"
	"agent-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// UploadDocument ingests one knowledge-base document for an existing agent
// and appends the vendor reference to the agent record
func UploadDocument(c echo.Context) error {
	log := logger.FromEcho(c)

	claims, ok := ownerFromContext(c)
	if !ok {
		log.Error("Failed to get owner claims from context")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	agent, org, status, errMsg := ownedAgent(c, claims.OwnerID)
	if agent == nil {
		return c.JSON(status, echo.Map{"error": errMsg})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		log.Error("Missing document file", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "a file is required"})
	}

	doc, err := readDocument(fh)
	if err != nil {
		log.Error("Failed to read document", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to read file"})
	}

	result, err := ingestClient.Ingest(c.Request().Context(), doc, agent.AgentID, org.OrgID)
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidDocument) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		var vendorErr *ingest.VendorError
		if errors.As(err, &vendorErr) {
			log.Error("Ingestion vendor rejected document",
				zap.Int("status", vendorErr.StatusCode),
				zap.String("body", vendorErr.Body))
			return c.JSON(http.StatusBadGateway, echo.Map{"error": vendorErr.Error()})
		}
		log.Error("Document upload failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "document upload failed"})
	}

	agent.DocumentRefs = append(agent.DocumentRefs, result.ReferenceID)
	if result.ContentURL != "" {
		agent.SourceURLs = append(agent.SourceURLs, result.ContentURL)
	}

	if err := agentRepo.UpsertAgent(c.Request().Context(), agent); err != nil {
		log.Error("Failed to store document reference", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store document reference"})
	}

	log.Info("Document ingested",
		zap.String("agent_id", agent.AgentID),
		zap.String("reference_id", result.ReferenceID))

	return c.JSON(http.StatusCreated, echo.Map{
		"reference_id": result.ReferenceID,
		"content_url":  result.ContentURL,
	})
}
