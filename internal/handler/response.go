package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "agentdesk/internal/errors"
	"agentdesk/internal/middleware"
	"agentdesk/internal/model"
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

func invalidJSON(c *gin.Context) {
	writeError(c, apperrors.BadRequest("invalid_json", "invalid request body"))
}

// currentAccount reads the account set by middleware.Auth and answers 401
// itself when it is missing.
func currentAccount(c *gin.Context) (*model.Account, bool) {
	account := middleware.Account(c)
	if account == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"code": "unauthorized", "message": "unauthorized"},
		})
		return nil, false
	}
	return account, true
}
