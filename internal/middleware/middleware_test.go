package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aura-live/backend/internal/auth"
	"github.com/aura-live/backend/internal/models"
)

func newRouter(jwtSvc *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/me", JWT(jwtSvc), func(c *gin.Context) {
		caller, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": caller.UserID, "name": caller.Name, "role": caller.Role})
	})
	r.GET("/staff", JWT(jwtSvc), RequireStaff(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	svc := auth.NewJWTService("s", time.Hour)
	r := newRouter(svc)

	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/me", "garbage").Code)

	token, err := svc.Generate(uuid.New(), "Ann", models.RoleUser)
	require.NoError(t, err)
	w := do(r, "/me", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ann"`)
}

func TestRequireStaff(t *testing.T) {
	svc := auth.NewJWTService("s", time.Hour)
	r := newRouter(svc)

	userTok, _ := svc.Generate(uuid.New(), "u", models.RoleUser)
	modTok, _ := svc.Generate(uuid.New(), "m", models.RoleModerator)
	adminTok, _ := svc.Generate(uuid.New(), "a", models.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, do(r, "/staff", userTok).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/staff", modTok).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/staff", adminTok).Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://localhost:3000"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://localhost:3000/, https://live.example.com"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/x", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("http://localhost:3000")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "simple requests pass; the browser enforces the missing header")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggerIncludesCaller(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	svc := auth.NewJWTService("s", time.Hour)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/polls/:id/results", OptionalJWT(svc), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })

	userID := uuid.New()
	token, err := svc.Generate(userID, "Ann", models.RoleModerator)
	require.NoError(t, err)

	do(r, "/polls/"+uuid.NewString()+"/results?stream_id=abc", token)
	do(r, "/polls/"+uuid.NewString()+"/results", "")
	do(r, "/fail", "")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	first := entries[0].ContextMap()
	assert.Equal(t, "/polls/:id/results", first["route"])
	assert.Equal(t, userID.String(), first["user_id"])
	assert.Equal(t, "moderator", first["role"])
	assert.Equal(t, "abc", first["stream_id"])
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)

	_, hasUser := entries[1].ContextMap()["user_id"]
	assert.False(t, hasUser, "anonymous requests carry no user")

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}
