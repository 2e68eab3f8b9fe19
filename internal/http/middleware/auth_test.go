package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnjs_backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubChecker map[int64]bool

func (s stubChecker) IsAdmin(_ context.Context, id int64) (bool, error) {
	admin, ok := s[id]
	if !ok {
		return false, errors.New("user not found")
	}
	return admin, nil
}

func authedRouter(checker AdminChecker) *gin.Engine {
	service.InitJWT("middleware-secret", time.Hour)
	r := gin.New()
	r.GET("/me", JWT(), func(c *gin.Context) {
		c.JSON(200, gin.H{"user_id": c.GetInt64(ContextUserID)})
	})
	r.GET("/catalog", OptionalJWT(), func(c *gin.Context) {
		c.JSON(200, gin.H{"user_id": c.GetInt64(ContextUserID)})
	})
	r.GET("/admin", JWT(), AdminOnly(checker), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func getWithToken(r http.Handler, path, token string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestJWTMiddleware(t *testing.T) {
	r := authedRouter(stubChecker{})
	token, err := service.GenerateJWT(7, false)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	if code := getWithToken(r, "/me", token); code != http.StatusOK {
		t.Fatalf("valid token: %d", code)
	}
	if code := getWithToken(r, "/me", ""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", code)
	}
	if code := getWithToken(r, "/me", "garbage"); code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", code)
	}
}

func TestOptionalJWT(t *testing.T) {
	r := authedRouter(stubChecker{})
	token, _ := service.GenerateJWT(7, false)

	if code := getWithToken(r, "/catalog", ""); code != http.StatusOK {
		t.Fatalf("anonymous: %d", code)
	}
	if code := getWithToken(r, "/catalog", token); code != http.StatusOK {
		t.Fatalf("valid token: %d", code)
	}
	if code := getWithToken(r, "/catalog", "garbage"); code != http.StatusUnauthorized {
		t.Fatalf("bad token should be rejected: %d", code)
	}
}

func TestAdminOnlyUsesStoredFlag(t *testing.T) {
	r := authedRouter(stubChecker{1: true, 2: false})

	admin, _ := service.GenerateJWT(1, false)
	if code := getWithToken(r, "/admin", admin); code != http.StatusNoContent {
		t.Fatalf("stored admin: %d", code)
	}

	// the claim says admin but storage disagrees
	stale, _ := service.GenerateJWT(2, true)
	if code := getWithToken(r, "/admin", stale); code != http.StatusForbidden {
		t.Fatalf("demoted admin: %d", code)
	}

	ghost, _ := service.GenerateJWT(3, true)
	if code := getWithToken(r, "/admin", ghost); code != http.StatusForbidden {
		t.Fatalf("unknown user: %d", code)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(200) })

	w := doGet(r, "/")
	if _, err := uuid.Parse(w.Header().Get(RequestIDHeader)); err != nil {
		t.Fatalf("generated id is not a uuid: %q", w.Header().Get(RequestIDHeader))
	}

	id := uuid.NewString()
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, id)
	r.ServeHTTP(w, req)
	if w.Header().Get(RequestIDHeader) != id {
		t.Fatalf("incoming id not reused")
	}
}
