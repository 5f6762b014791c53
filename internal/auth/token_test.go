package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/semre57/sengchain/internal/auth"
)

func newIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	ti, err := auth.NewTokenIssuer("test-secret", "sengd", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return ti
}

func TestIssueAndVerify(t *testing.T) {
	ti := newIssuer(t)
	tok, err := ti.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ti.Verify(tok)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if claims.Subject != "alice" || claims.Role != auth.RoleOperator {
		t.Errorf("claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Error("token id should be set")
	}
}

func TestVerify_rejections(t *testing.T) {
	ti := newIssuer(t)

	other, _ := auth.NewTokenIssuer("other-secret", "sengd", time.Hour)
	wrongSecret, _ := other.Issue("mallory")

	otherIss, _ := auth.NewTokenIssuer("test-secret", "elsewhere", time.Hour)
	wrongIssuer, _ := otherIss.Issue("mallory")

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sengd",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Role: auth.RoleOperator,
	}).SignedString([]byte("test-secret"))

	wrongRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "sengd",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "viewer",
	}).SignedString([]byte("test-secret"))

	for name, tok := range map[string]string{
		"garbage":      "not.a.jwt",
		"wrong secret": wrongSecret,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
		"wrong role":   wrongRole,
	} {
		if _, err := ti.Verify(tok); err == nil {
			t.Errorf("%s: expected verification failure", name)
		}
	}
}

func TestNewTokenIssuer_emptySecret(t *testing.T) {
	if _, err := auth.NewTokenIssuer("", "sengd", 0); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestRequireOperator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ti := newIssuer(t)
	tok, _ := ti.Issue("alice")

	r := gin.New()
	r.POST("/guarded", auth.RequireOperator(ti), func(c *gin.Context) {
		c.String(http.StatusOK, auth.ClaimsFromCtx(c).Subject)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusOK},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, w.Code, tc.want)
		}
		if tc.want == http.StatusOK && !strings.Contains(w.Body.String(), "alice") {
			t.Errorf("%s: claims not propagated: %s", tc.name, w.Body.String())
		}
	}
}

func TestRequireOperator_disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/open", auth.RequireOperator(nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/open", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("got %d, want 204", w.Code)
	}
}
