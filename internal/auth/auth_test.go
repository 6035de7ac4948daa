package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/brokersim/brokerage-api/internal/database"
	"github.com/brokersim/brokerage-api/internal/types"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return NewService("test-secret", db), db
}

func seedUser(t *testing.T, db *gorm.DB) *types.User {
	t.Helper()

	user := &types.User{
		UserID:    "user-1",
		APIKey:    "key-1",
		APISecret: "secret-1",
		CreatedAt: time.Now(),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func TestGenerateAndValidateToken(t *testing.T) {
	service, db := newTestService(t)
	user := seedUser(t, db)

	resp, err := service.GenerateToken(Credentials{APIKey: user.APIKey, APISecret: user.APISecret})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}
	if time.Until(resp.Expiration) < 23*time.Hour {
		t.Errorf("expiration too soon: %v", resp.Expiration)
	}

	claims, err := service.ValidateToken(resp.Token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != user.UserID {
		t.Errorf("claims user_id = %s, want %s", claims.UserID, user.UserID)
	}
	if len(claims.Permissions) == 0 {
		t.Error("no permissions in claims")
	}
}

func TestGenerateTokenInvalidCredentials(t *testing.T) {
	service, db := newTestService(t)
	user := seedUser(t, db)

	cases := []Credentials{
		{APIKey: "no-such-key", APISecret: user.APISecret},
		{APIKey: user.APIKey, APISecret: "wrong-secret"},
		{},
	}
	for _, creds := range cases {
		_, err := service.GenerateToken(creds)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("GenerateToken(%+v): got %v, want ErrInvalidCredentials", creds, err)
		}
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	service, db := newTestService(t)
	user := seedUser(t, db)

	resp, err := service.GenerateToken(Credentials{APIKey: user.APIKey, APISecret: user.APISecret})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	other := NewService("different-secret", db)
	if _, err := other.ValidateToken(resp.Token); err == nil {
		t.Error("token signed with another secret validated")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	service, _ := newTestService(t)

	if _, err := service.ValidateToken("not-a-jwt"); err == nil {
		t.Error("garbage token validated")
	}
}

func TestGetUserID(t *testing.T) {
	claims := jwt.MapClaims{"user_id": "user-42"}
	if got := GetUserID(claims); got != "user-42" {
		t.Errorf("GetUserID = %s, want user-42", got)
	}

	if got := GetUserID(jwt.MapClaims{}); got != "" {
		t.Errorf("GetUserID on empty claims = %q, want empty", got)
	}
	if got := GetUserID(nil); got != "" {
		t.Errorf("GetUserID(nil) = %q, want empty", got)
	}
}
