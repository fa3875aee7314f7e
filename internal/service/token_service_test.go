package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	service := NewTokenService(TokenConfig{Secret: "secret", Expiry: time.Hour})

	token, expiresAt, err := service.Issue("user-1", "admin@example.com", "Admin", models.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "timetable-api", claims.Issuer)
}

func TestTokenServiceRejectsForeignSignature(t *testing.T) {
	issuer := NewTokenService(TokenConfig{Secret: "other"})
	token, _, err := issuer.Issue("user-1", "", "", models.RoleViewer)
	require.NoError(t, err)

	_, err = NewTokenService(TokenConfig{Secret: "secret"}).ValidateToken(token)
	require.Error(t, err)
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	service := NewTokenService(TokenConfig{Secret: "secret", Expiry: time.Minute})
	service.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := service.Issue("user-1", "", "", models.RoleAdmin)
	require.NoError(t, err)

	service.now = time.Now
	_, err = service.ValidateToken(token)
	require.Error(t, err)
}

func TestTokenServiceIssueRequiresUser(t *testing.T) {
	_, _, err := NewTokenService(TokenConfig{Secret: "secret"}).Issue(" ", "", "", models.RoleAdmin)
	require.Error(t, err)
}
