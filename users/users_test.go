package users_test

import (
	"testing"

	"github.com/jrsteele09/go-admin-client/internal/errors"
	"github.com/jrsteele09/go-admin-client/users"
	fakeuserrepo "github.com/jrsteele09/go-admin-client/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"strong", "Wagon2024", false},
		{"too short", "Ab1", true},
		{"no upper", "wagon2024", true},
		{"no number", "WagonWagon", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := users.HashPassword("Correct1horse")
	require.NoError(t, err)

	u := &users.User{PasswordHash: hash}
	require.True(t, u.CheckPassword("Correct1horse"))
	require.False(t, u.CheckPassword("wrong"))
}

func TestFakeRepoLookupIsCaseInsensitive(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	u := &users.User{Email: "Ops@Example.com", Role: users.RoleAdmin}
	require.NoError(t, repo.Upsert(u))
	require.NotEmpty(t, u.ID)

	got, err := repo.GetByEmail("ops@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	require.NoError(t, repo.SetLastLogin(u.ID))
	require.False(t, got.LastLogin.IsZero())

	require.NoError(t, repo.Delete(u.ID))
	_, err = repo.GetByID(u.ID)
	require.ErrorIs(t, err, errors.ErrNotFound)
}
