package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Thrusbalda/auto-work-log/internal/errors"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr == nil {
		apiErr = apperrors.Internal("")
	}

	errorBody := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Details != nil {
		errorBody["details"] = apiErr.Details
	}

	c.JSON(apiErr.Status, gin.H{
		"error": errorBody,
	})
}

func writeInvalidBody(c *gin.Context, message string) {
	if message == "" {
		message = "invalid request body"
	}
	writeError(c, apperrors.New(http.StatusBadRequest, "invalid_json", message))
}
