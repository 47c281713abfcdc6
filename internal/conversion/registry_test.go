package conversion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/migration"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
	"github.com/dropDatabas3/eventgate/internal/store/docstore/memory"
)

func newFixture(t *testing.T) (*memory.Store, *Registry) {
	t.Helper()
	s := memory.New()
	r := NewRegistry(s, migration.NewEngine(s))
	return s, r
}

func seedGuest(t *testing.T, s docstore.Store, guestID string) {
	t.Helper()
	now := time.Now().UTC()
	g := &types.GuestRecord{ID: guestID, FirstName: "Jane", LastName: "Doe", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.Set(context.Background(), docstore.GuestPath(guestID), g))
}

func TestCreate_RequiresExistingUnconvertedGuest(t *testing.T) {
	s, r := newFixture(t)
	ctx := context.Background()

	_, _, err := r.Create(ctx, "nope", "jane@example.com")
	require.ErrorIs(t, err, ErrGuestNotFound)

	seedGuest(t, s, "g1")
	p, tok, err := r.Create(ctx, "g1", "Jane@Example.COM ")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", p.Email, "email must be normalized")
	require.Equal(t, "g1", p.GuestID)
	require.NotEmpty(t, tok)
	require.NotEqual(t, tok, p.TokenHash, "only the hash is persisted")

	// Guest ya convertido: rechazado.
	require.NoError(t, s.RunTransaction(ctx, func(tx docstore.Tx) error {
		return tx.Update(docstore.GuestPath("g1"), map[string]any{"converted_to_user_id": "u1"})
	}))
	_, _, err = r.Create(ctx, "g1", "jane@example.com")
	require.ErrorIs(t, err, ErrGuestConverted)
}

func TestCreate_LastRequestWins(t *testing.T) {
	s, r := newFixture(t)
	ctx := context.Background()
	seedGuest(t, s, "g1")
	seedGuest(t, s, "g2")

	_, tok1, err := r.Create(ctx, "g1", "jane@example.com")
	require.NoError(t, err)
	_, tok2, err := r.Create(ctx, "g2", "jane@example.com")
	require.NoError(t, err)

	p, err := r.Get(ctx, "jane@example.com", tok2)
	require.NoError(t, err)
	require.Equal(t, "g2", p.GuestID)

	// El token del start pisado también quedó pisado.
	_, err = r.Get(ctx, "jane@example.com", tok1)
	require.ErrorIs(t, err, ErrBadToken)
}

func TestGet_ExpiryBoundary(t *testing.T) {
	s, r := newFixture(t)
	ctx := context.Background()
	seedGuest(t, s, "g1")

	created := time.Now().UTC()
	_, tok, err := r.Create(ctx, "g1", "jane@example.com")
	require.NoError(t, err)

	// 23h59m: todavía viva.
	r.now = func() time.Time { return created.Add(24*time.Hour - time.Minute) }
	_, err = r.Get(ctx, "jane@example.com", tok)
	require.NoError(t, err)

	// 24h1m: vencida, el registro se borra y no se resucita.
	r.now = func() time.Time { return created.Add(24*time.Hour + time.Minute) }
	_, err = r.Get(ctx, "jane@example.com", tok)
	require.ErrorIs(t, err, ErrNoPending)

	var p types.PendingConversion
	require.ErrorIs(t, s.Get(ctx, docstore.PendingPath("jane@example.com"), &p), docstore.ErrNotFound)

	// Incluso volviendo el reloj atrás, la pending no vuelve.
	r.now = time.Now
	_, err = r.Get(ctx, "jane@example.com", tok)
	require.ErrorIs(t, err, ErrNoPending)
}

func TestComplete_ConsumesPendingExactlyOnce(t *testing.T) {
	s, r := newFixture(t)
	ctx := context.Background()
	seedGuest(t, s, "g1")
	now := time.Now().UTC()
	require.NoError(t, s.Set(ctx, docstore.UserPath("u1"), &types.User{ID: "u1", Role: "user", CreatedAt: now, UpdatedAt: now}))

	_, tok, err := r.Create(ctx, "g1", "jane@example.com")
	require.NoError(t, err)

	res, err := r.Complete(ctx, "jane@example.com", tok, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", res.UserID)

	// El segundo intento no encuentra pending: se consumió con la migración.
	_, err = r.Complete(ctx, "jane@example.com", tok, "u1")
	require.ErrorIs(t, err, ErrNoPending)
}

func TestComplete_RequiresMatchingToken(t *testing.T) {
	s, r := newFixture(t)
	ctx := context.Background()
	seedGuest(t, s, "g1")
	now := time.Now().UTC()
	require.NoError(t, s.Set(ctx, docstore.UserPath("u1"), &types.User{ID: "u1", Role: "user", CreatedAt: now, UpdatedAt: now}))

	_, tok, err := r.Create(ctx, "g1", "jane@example.com")
	require.NoError(t, err)

	// Conocer el email no alcanza: sin el token del link no hay conversión.
	for _, bad := range []string{"", "guess", tok + "x"} {
		_, err = r.Complete(ctx, "jane@example.com", bad, "u1")
		require.ErrorIs(t, err, ErrBadToken)
	}

	// La pending sigue intacta y el token legítimo sigue sirviendo.
	var g types.GuestRecord
	require.NoError(t, s.Get(ctx, docstore.GuestPath("g1"), &g))
	require.Empty(t, g.ConvertedToUserID)

	res, err := r.Complete(ctx, "jane@example.com", tok, "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", res.UserID)
}

func TestComplete_ExpiredIsDistinctFromMissing(t *testing.T) {
	s, r := newFixture(t)
	ctx := context.Background()
	seedGuest(t, s, "g1")

	_, err := r.Complete(ctx, "ghost@example.com", "whatever", "u1")
	require.ErrorIs(t, err, ErrNoPending)

	created := time.Now().UTC()
	_, tok, err := r.Create(ctx, "g1", "jane@example.com")
	require.NoError(t, err)

	r.now = func() time.Time { return created.Add(25 * time.Hour) }
	_, err = r.Complete(ctx, "jane@example.com", tok, "u1")
	require.ErrorIs(t, err, ErrExpired)
}
