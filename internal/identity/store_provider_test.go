package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/eventgate/internal/security/password"
	"github.com/dropDatabas3/eventgate/internal/store/docstore/memory"
)

func TestCreateIdentity(t *testing.T) {
	p := NewStoreProvider(memory.New())
	ctx := context.Background()

	u, err := p.CreateIdentity(ctx, NewIdentity{
		Email:     "Jane@Example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Password:  "correct-horse-battery",
	})
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", u.Email)
	require.NotEmpty(t, u.PasswordHash)
	require.NotEqual(t, "correct-horse-battery", u.PasswordHash)

	require.True(t, password.Verify("correct-horse-battery", u.PasswordHash))
	require.False(t, password.Verify("wrong-password", u.PasswordHash))

	// Email duplicado (case-insensitive).
	_, err = p.CreateIdentity(ctx, NewIdentity{Email: "JANE@example.com"})
	require.ErrorIs(t, err, ErrEmailInUse)

	// Password corta.
	_, err = p.CreateIdentity(ctx, NewIdentity{Email: "other@example.com", Password: "short"})
	require.ErrorIs(t, err, ErrWeakPassword)

	// Passwordless: válido (identidades creadas vía passkey).
	u2, err := p.CreateIdentity(ctx, NewIdentity{Email: "passkey@example.com"})
	require.NoError(t, err)
	require.Empty(t, u2.PasswordHash)
}

func TestLookupByEmail(t *testing.T) {
	p := NewStoreProvider(memory.New())
	ctx := context.Background()

	_, err := p.LookupByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, ErrNotFound)

	created, err := p.CreateIdentity(ctx, NewIdentity{Email: "jane@example.com"})
	require.NoError(t, err)

	got, err := p.LookupByEmail(ctx, "  JANE@example.com ")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestRevokeAllTokens(t *testing.T) {
	p := NewStoreProvider(memory.New())
	ctx := context.Background()

	require.ErrorIs(t, p.RevokeAllTokens(ctx, "ghost"), ErrNotFound)

	u, err := p.CreateIdentity(ctx, NewIdentity{Email: "jane@example.com"})
	require.NoError(t, err)
	require.NoError(t, p.RevokeAllTokens(ctx, u.ID))

	got, err := p.LookupByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.NotNil(t, got.TokensInvalidAfter)
}
