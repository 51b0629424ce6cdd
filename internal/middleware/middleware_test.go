package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRoles(t *testing.T) {
	teacher := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
	r := gin.New()
	r.GET("/read", JWT(validatorStub{claims: teacher}), func(c *gin.Context) {
		claims, ok := Claims(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.UserID)
	})
	r.POST("/write", JWT(validatorStub{claims: teacher}), Writers(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/read", "").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/read", "Basic good").Code)
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/read", "Bearer bad").Code)

	ok := perform(r, http.MethodGet, "/read", "Bearer good")
	assert.Equal(t, http.StatusOK, ok.Code)
	assert.Equal(t, "t1", ok.Body.String())

	assert.Equal(t, http.StatusForbidden, perform(r, http.MethodPost, "/write", "Bearer good").Code)
}

func TestRequireRolesWithoutJWT(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, perform(r, http.MethodGet, "/", "").Code)
}

type observerStub struct {
	method, path string
	status       int
}

func (o *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.method, o.path, o.status = method, path, status
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &observerStub{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/schools/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	perform(r, http.MethodGet, "/schools/42", "")
	assert.Equal(t, "/schools/:id", obs.path)
	assert.Equal(t, http.StatusAccepted, obs.status)

	perform(r, http.MethodGet, "/nowhere", "")
	assert.Equal(t, "unmatched", obs.path)
	assert.Equal(t, http.StatusNotFound, obs.status)
}

type auditStub struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	writer := &auditStub{}
	admin := &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}
	r := gin.New()
	r.DELETE("/schools/:id", JWT(validatorStub{claims: admin}), Audit(writer, nil, models.AuditActionSchoolDelete, "school", "id"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})

	perform(r, http.MethodDelete, "/schools/missing", "Bearer good")
	assert.Empty(t, writer.logs)

	writer.err = errors.New("db down")
	rec := perform(r, http.MethodDelete, "/schools/s1", "Bearer good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, writer.logs, 1)
	entry := writer.logs[0]
	assert.Equal(t, models.AuditActionSchoolDelete, entry.Action)
	assert.Equal(t, "a1", *entry.UserID)
	assert.Equal(t, "s1", *entry.ResourceID)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.NewValues, &payload))
	assert.Equal(t, "/schools/:id", payload["path"])
}

func TestResponseMeta(t *testing.T) {
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		SetMeta(c, "source", "version")
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	perform(r, http.MethodGet, "/", "")
	assert.Equal(t, true, meta["cached"])
	assert.Equal(t, "version", meta["source"])
	assert.Contains(t, meta, "processing_time_ms")

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))
}
