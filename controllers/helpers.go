package controllers

import (
	"net/http"
	"strconv"

	"registration-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError writes a ServiceError as {"error", "code", "field"}.
func respondError(ctx *gin.Context, svcErr *services.ServiceError) {
	body := gin.H{"error": svcErr.Message, "code": svcErr.Kind}
	if svcErr.Field != "" {
		body["field"] = svcErr.Field
	}
	ctx.JSON(svcErr.StatusCode, body)
}

func badRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request",
		"code":    services.KindValidation,
		"details": err.Error(),
	})
}

// parseIDParam reads a uuid path parameter. It writes a 404 and returns false
// when the value is not a uuid.
func parseIDParam(ctx *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": resource + " not found", "code": services.KindNotFound})
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts and validates page/limit query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxLimit = 100
	pageInt, limitInt := 1, 10
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("limit", "10")); err == nil && l > 0 {
		if l > maxLimit {
			l = maxLimit
		}
		limitInt = l
	}
	return pageInt, limitInt
}
