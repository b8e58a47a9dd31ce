package controllers

import (
	"net/http"

	"registration-service/middleware"
	"registration-service/models"
	"registration-service/services"

	"github.com/gin-gonic/gin"
)

// FormController serves forms and the caller's submissions.
type FormController struct {
	submissions services.SubmissionService
}

func NewFormController(svc services.SubmissionService) *FormController {
	return &FormController{submissions: svc}
}

// ListForms handles GET /forms
func (fc *FormController) ListForms(ctx *gin.Context) {
	forms, svcErr := fc.submissions.ListAvailableForms(ctx.Request.Context())
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"forms": forms})
}

// GetForm handles GET /forms/:id
func (fc *FormController) GetForm(ctx *gin.Context) {
	formID, ok := parseIDParam(ctx, "id", "Form")
	if !ok {
		return
	}
	form, svcErr := fc.submissions.GetForm(ctx.Request.Context(), formID)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"form": form})
}

// Submit handles POST /forms/:id/submit
func (fc *FormController) Submit(ctx *gin.Context) {
	formID, ok := parseIDParam(ctx, "id", "Form")
	if !ok {
		return
	}
	var req models.SubmitFormRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	caller := middleware.GetCaller(ctx)
	submission, svcErr := fc.submissions.Submit(ctx.Request.Context(), formID, caller.UserID, req.Data)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":    "Form submitted successfully",
		"submission": submission,
	})
}

// MySubmissions handles GET /my-submissions
func (fc *FormController) MySubmissions(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	caller := middleware.GetCaller(ctx)

	subs, total, svcErr := fc.submissions.ListUserSubmissions(ctx.Request.Context(), caller.UserID, page, limit)
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
