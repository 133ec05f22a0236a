package httpapi

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error envelope consumed by the frontend.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func respondError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}
