package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"registration-service/controllers"
	"registration-service/middleware"
	"registration-service/repository/memory"
	"registration-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	logger := zap.NewNop()
	subs := services.NewSubmissionService(store, nil, nil, nil, logger)
	pays := services.NewPaymentService(store, nil, nil, nil, nil, "", nil, 0, nil, logger)

	r := gin.New()
	RegisterRoutes(r, Controllers{
		Forms:    controllers.NewFormController(subs),
		Payments: controllers.NewPaymentController(pays),
		Admin:    controllers.NewAdminController(services.NewAdminService(store, logger), subs),
	}, middleware.AuthConfig{JWTSecret: []byte("secret"), TrustGatewayHeaders: true})
	return r
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestRoutes_RequireAuth(t *testing.T) {
	r := setupRouter()
	for _, path := range []string{"/forms", "/my-submissions", "/admin/dashboard"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	req.Header.Set("X-User-Role", services.RoleAdmin)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentRoutes_GatewayNotConfigured(t *testing.T) {
	r := setupRouter()
	req := httptest.NewRequest(http.MethodPost, "/submissions/"+uuid.NewString()+"/payment/razorpay/create", nil)
	req.Header.Set("X-User-ID", uuid.NewString())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
