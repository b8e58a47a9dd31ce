package controllers

import (
	"net/http"

	"registration-service/services"

	"github.com/gin-gonic/gin"
)

// AdminController serves the reporting endpoints.
type AdminController struct {
	admin       services.AdminService
	submissions services.SubmissionService
}

func NewAdminController(admin services.AdminService, submissions services.SubmissionService) *AdminController {
	return &AdminController{admin: admin, submissions: submissions}
}

// Dashboard handles GET /admin/dashboard
func (ac *AdminController) Dashboard(ctx *gin.Context) {
	stats, svcErr := ac.admin.Dashboard(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// FormSubmissions handles GET /admin/forms/:id/submissions
func (ac *AdminController) FormSubmissions(ctx *gin.Context) {
	formID, ok := parseIDParam(ctx, "id", "Form")
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx)

	subs, total, svcErr := ac.submissions.ListFormSubmissions(ctx.Request.Context(), formID, page, limit)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"total":       total,
		"page":        page,
		"limit":       limit,
	})
}
