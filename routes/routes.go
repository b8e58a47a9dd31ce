package routes

import (
	"net/http"

	"registration-service/controllers"
	"registration-service/middleware"

	"github.com/gin-gonic/gin"
)

// Controllers bundles every handler the router mounts.
type Controllers struct {
	Forms    *controllers.FormController
	Payments *controllers.PaymentController
	Admin    *controllers.AdminController
}

// RegisterRoutes sets up the health check and every authenticated route.
func RegisterRoutes(r *gin.Engine, c Controllers, auth middleware.AuthConfig) {
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "registration-service"})
	})

	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(auth))

	authed.GET("/forms", c.Forms.ListForms)
	authed.GET("/forms/:id", c.Forms.GetForm)
	authed.POST("/forms/:id/submit", c.Forms.Submit)
	authed.GET("/my-submissions", c.Forms.MySubmissions)

	authed.POST("/submissions/:id/payment/razorpay/create", c.Payments.CreateRazorpayOrder)
	authed.POST("/submissions/:id/payment/stripe/process", c.Payments.ProcessStripe)
	authed.POST("/payments/razorpay/verify", c.Payments.VerifyRazorpay)
	authed.POST("/payments/stripe/confirm", c.Payments.ConfirmStripe)
	authed.GET("/payments/:id", c.Payments.GetPayment)

	admin := authed.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/dashboard", c.Admin.Dashboard)
	admin.GET("/forms/:id/submissions", c.Admin.FormSubmissions)
}
