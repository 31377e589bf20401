package jwt

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateToken("ops@x.com", "operator", "secret", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ValidateToken(token, "secret")
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "ops@x.com" || claims.Role != "operator" || claims.Issuer != "creditflow" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateRejects(t *testing.T) {
	good, _ := GenerateToken("a", "operator", "secret", time.Minute)
	expired, _ := GenerateToken("a", "operator", "secret", -time.Minute)

	tests := []struct {
		name   string
		token  string
		secret string
		want   error
	}{
		{"wrong secret", good, "other", ErrTokenInvalid},
		{"expired", expired, "secret", ErrTokenExpired},
		{"garbage", "not.a.token", "secret", ErrTokenInvalid},
		{"empty", "", "secret", ErrTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateToken(tt.token, tt.secret); !errors.Is(err, tt.want) {
				t.Errorf("ValidateToken() error = %v, want %v", err, tt.want)
			}
		})
	}
}
