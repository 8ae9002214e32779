package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

const maxUploadBytes = 25 << 20

// UploadHandler stores ticket attachments in object storage.
type UploadHandler struct {
	storage *service.StorageService
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(storage *service.StorageService) *UploadHandler {
	return &UploadHandler{storage: storage}
}

// Upload accepts one multipart file under the "file" field.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file field required", nil)
	}
	if header.Size > maxUploadBytes {
		return apperrors.NewValidationError("file too large", map[string]any{"max_bytes": maxUploadBytes})
	}

	file, err := header.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if len(data) > maxUploadBytes {
		return apperrors.NewValidationError("file too large", map[string]any{"max_bytes": maxUploadBytes})
	}

	result, err := h.storage.Upload(c.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.UploadResponse{
		URL:       result.URL,
		Key:       result.ObjectKey,
		AssetType: string(result.AssetType),
		Size:      result.Size,
	}})
}
