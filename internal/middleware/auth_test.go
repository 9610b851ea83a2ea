package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func setupAuthRouter(gate Gate) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(testSecret, gate))
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"principal": Principal(c)})
	})
	return r
}

func doAuthRequest(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func mustToken(t *testing.T, secret []byte, subject string, ttl time.Duration) string {
	t.Helper()
	token, err := IssueToken(secret, subject, ttl)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func TestAuthMiddleware(t *testing.T) {
	valid := mustToken(t, testSecret, "alice", time.Hour)
	expired := mustToken(t, testSecret, "alice", -time.Hour)
	otherKey := mustToken(t, []byte("other-secret"), "alice", time.Hour)
	stranger := mustToken(t, testSecret, "mallory", time.Hour)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	gate := AllowList("alice")

	tests := []struct {
		name          string
		header        string
		wantStatus    int
		wantPrincipal string
	}{
		{"valid_token", "Bearer " + valid, http.StatusOK, "alice"},
		{"missing_header", "", http.StatusUnauthorized, ""},
		{"wrong_scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"garbage_token", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
		{"expired_token", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong_secret", "Bearer " + otherKey, http.StatusUnauthorized, ""},
		{"alg_none", "Bearer " + none, http.StatusUnauthorized, ""},
		{"denied_by_gate", "Bearer " + stranger, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doAuthRequest(setupAuthRouter(gate), tt.header)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			body := parseBody(t, rec)
			if tt.wantStatus == http.StatusOK {
				if p, _ := body["principal"].(string); p != tt.wantPrincipal {
					t.Errorf("principal = %q, want %q", p, tt.wantPrincipal)
				}
				return
			}
			errObj, ok := body["error"].(map[string]interface{})
			if !ok {
				t.Fatal("expected error object in response")
			}
			if code, _ := errObj["code"].(string); code != "UNAUTHORIZED" {
				t.Errorf("error code = %q, want UNAUTHORIZED", code)
			}
		})
	}
}

func TestAnyPrincipal(t *testing.T) {
	if AnyPrincipal.IsAuthenticated("") {
		t.Error("empty principal should be rejected")
	}
	if !AnyPrincipal.IsAuthenticated("bob") {
		t.Error("non-empty principal should be accepted")
	}
}
