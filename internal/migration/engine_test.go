package migration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
	"github.com/dropDatabas3/eventgate/internal/store/docstore/memory"
)

func seedGuest(t *testing.T, s docstore.Store, guestID string, links int) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	g := &types.GuestRecord{
		ID:        guestID,
		FirstName: "Jane",
		LastName:  "Doe",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Set(ctx, docstore.GuestPath(guestID), g))

	for i := 0; i < links; i++ {
		l := &types.AttendanceLink{
			ID:           fmt.Sprintf("link-%s-%04d", guestID, i),
			OwnerID:      guestID,
			EventID:      fmt.Sprintf("ev-%d", i%7),
			RegisteredAt: now.Add(-time.Duration(i) * time.Hour),
			CreatedAt:    now,
		}
		require.NoError(t, s.Set(ctx, docstore.AttendancePath(l.ID), l))
	}
}

func newIdentity(id string) *types.User {
	now := time.Now().UTC()
	return &types.User{ID: id, Email: id + "@example.com", Role: "user", CreatedAt: now, UpdatedAt: now}
}

func ownedLinks(t *testing.T, s docstore.Store, ownerID string) []types.AttendanceLink {
	t.Helper()
	snaps, err := s.Query(context.Background(), docstore.CollectionAttendance, "owner_id", ownerID)
	require.NoError(t, err)
	out := make([]types.AttendanceLink, 0, len(snaps))
	for _, snap := range snaps {
		var l types.AttendanceLink
		require.NoError(t, snap.Decode(&l))
		out = append(out, l)
	}
	return out
}

func TestMigrate_AttendanceCounts(t *testing.T) {
	// 501 cruza el tope de escrituras por transacción y fuerza el path chunked.
	for _, n := range []int{0, 1, 499, 501} {
		n := n
		t.Run(fmt.Sprintf("links=%d", n), func(t *testing.T) {
			s := memory.New()
			e := NewEngine(s)
			ctx := context.Background()
			guestID := fmt.Sprintf("g-%d", n)
			seedGuest(t, s, guestID, n)

			res, err := e.Migrate(ctx, Request{GuestID: guestID, NewIdentity: newIdentity(fmt.Sprintf("u-%d", n))})
			require.NoError(t, err)
			require.Equal(t, n, res.MigratedAttendanceCount)

			// La identidad existe.
			var u types.User
			require.NoError(t, s.Get(ctx, docstore.UserPath(res.UserID), &u))

			// El guest quedó marcado.
			var g types.GuestRecord
			require.NoError(t, s.Get(ctx, docstore.GuestPath(guestID), &g))
			require.Equal(t, res.UserID, g.ConvertedToUserID)

			// Cada link migrado preserva evento, timestamp original y provenance.
			migrated := ownedLinks(t, s, res.UserID)
			require.Len(t, migrated, n)
			originals := make(map[string]types.AttendanceLink, n)
			for _, l := range ownedLinks(t, s, guestID) {
				originals[l.ID] = l
			}
			require.Len(t, originals, n) // los originales no se tocan
			for _, m := range migrated {
				src, ok := originals[m.MigratedFrom]
				require.True(t, ok, "migrated link %s has unknown provenance %s", m.ID, m.MigratedFrom)
				require.Equal(t, src.EventID, m.EventID)
				require.True(t, src.RegisteredAt.Equal(m.RegisteredAt))
			}
		})
	}
}

func TestMigrate_SecondAttemptRejected(t *testing.T) {
	s := memory.New()
	e := NewEngine(s)
	ctx := context.Background()
	seedGuest(t, s, "g1", 3)

	_, err := e.Migrate(ctx, Request{GuestID: "g1", NewIdentity: newIdentity("u1")})
	require.NoError(t, err)

	_, err = e.Migrate(ctx, Request{GuestID: "g1", NewIdentity: newIdentity("u2")})
	require.ErrorIs(t, err, ErrAlreadyConverted)

	// Sin duplicados: u2 no existe y u1 tiene exactamente 3 links.
	var u types.User
	require.ErrorIs(t, s.Get(ctx, docstore.UserPath("u2"), &u), docstore.ErrNotFound)
	require.Len(t, ownedLinks(t, s, "u1"), 3)
}

func TestMigrate_GuestNotFound(t *testing.T) {
	e := NewEngine(memory.New())
	_, err := e.Migrate(context.Background(), Request{GuestID: "nope", NewIdentity: newIdentity("u1")})
	require.ErrorIs(t, err, ErrGuestNotFound)
}

func TestMigrate_LinkToExistingUser(t *testing.T) {
	s := memory.New()
	e := NewEngine(s)
	ctx := context.Background()
	seedGuest(t, s, "g1", 5)

	// Destino inexistente primero.
	_, err := e.Migrate(ctx, Request{GuestID: "g1", TargetUserID: "missing"})
	require.ErrorIs(t, err, ErrTargetNotFound)

	require.NoError(t, s.Set(ctx, docstore.UserPath("existing"), newIdentity("existing")))
	res, err := e.Migrate(ctx, Request{GuestID: "g1", TargetUserID: "existing"})
	require.NoError(t, err)
	require.Equal(t, "existing", res.UserID)
	require.Equal(t, 5, res.MigratedAttendanceCount)
}

func TestMigrate_ConditionalMarkerWinsOverStalePreflight(t *testing.T) {
	// Simula la carrera: el pre-flight de B pasa, pero A marca primero. El
	// commit del marker de B tiene que fallar con conflicto, no duplicar.
	s := memory.New()
	ctx := context.Background()
	seedGuest(t, s, "g1", 2)

	// A marca por afuera del engine (proceso concurrente).
	err := s.RunTransaction(ctx, func(tx docstore.Tx) error {
		return tx.Update(docstore.GuestPath("g1"), map[string]any{
			"converted_to_user_id": "winner",
		}, docstore.Precondition{FieldAbsent: "converted_to_user_id"})
	})
	require.NoError(t, err)

	e := NewEngine(s)
	_, err = e.Migrate(ctx, Request{GuestID: "g1", NewIdentity: newIdentity("loser")})
	require.ErrorIs(t, err, ErrAlreadyConverted)

	var g types.GuestRecord
	require.NoError(t, s.Get(ctx, docstore.GuestPath("g1"), &g))
	require.Equal(t, "winner", g.ConvertedToUserID)
}

func TestMigrate_DeletesPendingInFinalTransaction(t *testing.T) {
	s := memory.New()
	e := NewEngine(s)
	ctx := context.Background()
	seedGuest(t, s, "g1", 1)

	p := &types.PendingConversion{Email: "jane@example.com", GuestID: "g1", CreatedAt: time.Now().UTC(), ExpiresAt: time.Now().UTC().Add(time.Hour)}
	require.NoError(t, s.Set(ctx, docstore.PendingPath(p.Email), p))

	_, err := e.Migrate(ctx, Request{GuestID: "g1", NewIdentity: newIdentity("u1"), DeletePendingEmail: p.Email})
	require.NoError(t, err)

	var got types.PendingConversion
	require.ErrorIs(t, s.Get(ctx, docstore.PendingPath(p.Email), &got), docstore.ErrNotFound)
}

func TestMigrate_ConcurrentSameGuest(t *testing.T) {
	s := memory.New()
	e := NewEngine(s)
	ctx := context.Background()
	seedGuest(t, s, "g1", 10)

	type result struct {
		res *Result
		err error
	}
	const attempts = 8
	ch := make(chan result, attempts)
	for i := 0; i < attempts; i++ {
		id := fmt.Sprintf("u-%d", i)
		go func() {
			r, err := e.Migrate(ctx, Request{GuestID: "g1", NewIdentity: newIdentity(id)})
			ch <- result{r, err}
		}()
	}

	var okCount int
	var winner string
	for i := 0; i < attempts; i++ {
		r := <-ch
		if r.err == nil {
			okCount++
			winner = r.res.UserID
		} else {
			require.True(t, errors.Is(r.err, ErrAlreadyConverted), "unexpected error: %v", r.err)
		}
	}
	// singleflight puede colapsar varios intentos en el mismo resultado, pero
	// una sola identidad termina dueña de los links.
	require.GreaterOrEqual(t, okCount, 1)
	require.Len(t, ownedLinks(t, s, winner), 10)
}
