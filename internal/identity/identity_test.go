package identity

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/playperu/typerace/internal/typerace"
)

func TestIssueVerify(t *testing.T) {
	v := NewVerifier("secret")
	in := typerace.Identity{UID: "u1", DisplayName: "Ada", PhotoURL: "https://img.example/ada.png"}
	token, err := v.Issue(in, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	id, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id != in {
		t.Errorf("identity = %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("secret")

	expired, _ := v.Issue(typerace.Identity{UID: "u1"}, -time.Minute)
	otherKey, _ := NewVerifier("other").Issue(typerace.Identity{UID: "u1"}, time.Hour)
	noSubject, _ := v.Issue(typerace.Identity{}, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"expired":    expired,
		"wrong key":  otherKey,
		"no subject": noSubject,
		"alg none":   none,
		"garbage":    "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("secret")
	token, _ := v.Issue(typerace.Identity{UID: "u1"}, time.Hour)

	var got typerace.Identity
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer " + token, "u1"},
		{"missing", "", ""},
		{"invalid", "Bearer junk", ""},
		{"wrong scheme", "Basic " + token, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = typerace.Identity{UID: "stale"}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got.UID != tt.want {
				t.Errorf("uid = %q, want %q", got.UID, tt.want)
			}
		})
	}
}
