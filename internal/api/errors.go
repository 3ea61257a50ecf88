// internal/api/errors.go
package api

import (
	"net/http"

	apperrors "legal-analyzer/internal/common/errors"

	"github.com/gin-gonic/gin"
)

var statusByCode = map[apperrors.ErrorCode]int{
	apperrors.ErrCodeUnsupportedFileType:    http.StatusUnsupportedMediaType,
	apperrors.ErrCodeFileTooLarge:           http.StatusRequestEntityTooLarge,
	apperrors.ErrCodeEmptyDocument:          http.StatusUnprocessableEntity,
	apperrors.ErrCodeInvalidRequest:         http.StatusBadRequest,
	apperrors.ErrCodeDocumentNotFound:       http.StatusNotFound,
	apperrors.ErrCodeDocumentNotAnalyzed:    http.StatusConflict,
	apperrors.ErrCodeLLMTimeout:             http.StatusGatewayTimeout,
	apperrors.ErrCodeLLMRequestFailed:       http.StatusBadGateway,
	apperrors.ErrCodeLLMInvalidResponse:     http.StatusBadGateway,
	apperrors.ErrCodeStoreUnavailable:       http.StatusServiceUnavailable,
	apperrors.ErrCodeArchiveFailed:          http.StatusServiceUnavailable,
	apperrors.ErrCodeSearchQueryFailed:      http.StatusServiceUnavailable,
	apperrors.ErrCodeBlobStorageFailed:      http.StatusServiceUnavailable,
	apperrors.ErrCodeNotificationSendFailed: http.StatusBadGateway,
}

// HTTPStatus maps an error onto the response status for its code.
func HTTPStatus(err error) int {
	if status, ok := statusByCode[apperrors.AsStandardError(err).Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(c *gin.Context, err error) {
	stdErr := apperrors.AsStandardError(err)
	status := HTTPStatus(err)

	fields := map[string]interface{}{
		"path":   c.FullPath(),
		"code":   stdErr.Code,
		"status": status,
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed", fields)
	} else {
		s.logger.Debug("Request rejected", fields)
	}

	body := gin.H{
		"code":    stdErr.Code,
		"message": stdErr.Message,
	}
	if stdErr.Details != "" {
		body["details"] = stdErr.Details
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}
