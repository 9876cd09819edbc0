package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens([]byte("secret"))
	p := Principal{UserID: "u1", Name: "Asha", Email: "asha@example.com", Role: RoleCustomer}

	token, err := tokens.Issue(p, time.Hour)
	require.NoError(t, err)

	got, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestTokens_Parse(t *testing.T) {
	issuer := NewTokens([]byte("secret"))
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	valid, err := issuer.Issue(Principal{UserID: "u1", Role: RoleVendor}, time.Hour)
	require.NoError(t, err)
	badRole, err := issuer.Issue(Principal{UserID: "u1", Role: "root"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		secret  string
		now     time.Time
		token   string
		wantErr bool
	}{
		{name: "valid", secret: "secret", now: fixed, token: valid},
		{name: "wrong secret", secret: "other", now: fixed, token: valid, wantErr: true},
		{name: "expired", secret: "secret", now: fixed.Add(2 * time.Hour), token: valid, wantErr: true},
		{name: "garbage", secret: "secret", now: fixed, token: "not-a-token", wantErr: true},
		{name: "unknown role", secret: "secret", now: fixed, token: badRole, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewTokens([]byte(tt.secret))
			v.now = func() time.Time { return tt.now }

			p, err := v.Parse(tt.token)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", p.UserID)
			assert.Equal(t, RoleVendor, p.Role)
		})
	}
}

func TestPrincipal_Is(t *testing.T) {
	p := Principal{Role: RoleVendor}
	assert.True(t, p.Is(RoleVendor, RoleAdmin))
	assert.False(t, p.Is(RoleCustomer))
}
