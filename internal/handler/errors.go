package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/service"
)

var notFound = []error{
	service.ErrUserNotFound,
	service.ErrStoreNotFound,
	service.ErrCategoryNotFound,
	service.ErrProductNotFound,
	service.ErrCartNotFound,
	service.ErrCartItemNotFound,
	service.ErrOrderNotFound,
}

// respondError maps service and access errors to a status and body.
// Anything unrecognised is a 500 and is attached to the context for the
// request logger.
func respondError(c *gin.Context, err error) {
	var invalid *service.ValidationError
	var denied *access.DeniedError

	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"errors": invalid.Fields})
		return
	case errors.Is(err, access.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	case errors.As(err, &denied):
		c.JSON(http.StatusForbidden, gin.H{"error": gin.H{denied.Field: denied.Message}})
		return
	case errors.Is(err, service.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	for _, target := range notFound {
		if errors.Is(err, target) {
			c.JSON(http.StatusNotFound, gin.H{"error": target.Error()})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// bindError answers a request that failed binding with the same field-scoped
// shape as service validation errors.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": bindingFields(err)})
}

// paramID parses the :id path parameter, answering 400 when it is malformed.
func paramID(c *gin.Context, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}
