package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pataid/backend/internal/apperrors"
)

// respondError maps a service error onto the response envelope. Internal
// errors are logged with their cause but surface a generic message.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)

	var appErr *apperrors.Error
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		c.JSON(status, gin.H{
			"success": false,
			"error":   appErr.Message,
			"code":    string(appErr.Code),
		})
		return
	}

	log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   "Something went wrong, please try again",
		"code":    string(apperrors.CodeInternal),
	})
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}
