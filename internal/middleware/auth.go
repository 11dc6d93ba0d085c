package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "agentdesk/internal/errors"
	"agentdesk/internal/model"
	"agentdesk/internal/service"
)

const AccountContextKey = "account"

// Auth verifies the bearer token and loads the signed-in account.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.Unauthorized("missing authorization header"))
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			abortWithError(c, apperrors.Unauthorized("invalid authorization format"))
			return
		}

		accountID, apiErr := authService.ParseToken(token)
		if apiErr != nil {
			abortWithError(c, apiErr)
			return
		}

		account, apiErr := authService.CurrentAccount(c.Request.Context(), accountID)
		if apiErr != nil {
			abortWithError(c, apiErr)
			return
		}

		c.Set(AccountContextKey, account)
		c.Next()
	}
}

// Account returns the account stored by Auth, or nil outside authenticated routes.
func Account(c *gin.Context) *model.Account {
	value, ok := c.Get(AccountContextKey)
	if !ok {
		return nil
	}
	account, _ := value.(*model.Account)
	return account
}

func abortWithError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}
