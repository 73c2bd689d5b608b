package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSignAndVerifyJWT(t *testing.T) {
	claims := TokenClaims{Sub: "user-1", Role: "editor", Exp: time.Now().Add(time.Hour).Unix()}
	token, err := SignJWT("secret", claims)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	got, err := VerifyJWT("secret", token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if got.Sub != "user-1" || got.Role != "editor" {
		t.Fatalf("claims = %+v", got)
	}

	if _, err := VerifyJWT("wrong-secret", token); err == nil {
		t.Fatal("wrong secret should fail verification")
	}
}

func TestVerifyJWTExpired(t *testing.T) {
	token, _ := SignJWT("secret", TokenClaims{Sub: "user-1", Exp: time.Now().Add(-time.Minute).Unix()})
	if _, err := VerifyJWT("secret", token); err == nil {
		t.Fatal("expired token should fail verification")
	}
}

func TestAuthJWTMiddleware(t *testing.T) {
	var gotUser string
	handler := AuthJWT("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// No header.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// Valid token.
	token, _ := SignJWT("secret", TokenClaims{Sub: "user-1", Exp: time.Now().Add(time.Hour).Unix()})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if gotUser != "user-1" {
		t.Fatalf("user = %q, want user-1", gotUser)
	}
}
