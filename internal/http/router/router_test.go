package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/eventgate/internal/cache"
	"github.com/dropDatabas3/eventgate/internal/conversion"
	"github.com/dropDatabas3/eventgate/internal/credential"
	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/email"
	"github.com/dropDatabas3/eventgate/internal/guest"
	convertctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/convert"
	credentialctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/credential"
	guestctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/guest"
	healthctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/health"
	sessionctrl "github.com/dropDatabas3/eventgate/internal/http/controllers/session"
	"github.com/dropDatabas3/eventgate/internal/http/router"
	convertsvc "github.com/dropDatabas3/eventgate/internal/http/services/convert"
	"github.com/dropDatabas3/eventgate/internal/identity"
	"github.com/dropDatabas3/eventgate/internal/migration"
	"github.com/dropDatabas3/eventgate/internal/session"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
	"github.com/dropDatabas3/eventgate/internal/store/docstore/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	store    *memory.Store
	sessions *session.Manager
	server   *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	cacheCli := cache.NewMemory("test:")

	provider := identity.NewStoreProvider(s)
	engine := migration.NewEngine(s)
	registry := conversion.NewRegistry(s, engine)
	credIndex := credential.NewIndex(s)
	guestSvc := guest.NewService(s, cacheCli)

	sessions, err := session.NewManager(session.Config{
		Secret: testSecret,
		Env:    "dev",
	}, s, provider)
	require.NoError(t, err)

	mailer := &email.VerificationMailer{Sender: email.EchoSender{}, BaseURL: "http://localhost"}
	convertService := convertsvc.NewService(convertsvc.Deps{
		Registry:  registry,
		Engine:    engine,
		Provider:  provider,
		Mailer:    mailer,
		EchoLinks: true,
	})

	handler := router.New(router.Deps{
		Guest:      guestctrl.NewController(guestSvc),
		Convert:    convertctrl.NewController(convertService, sessions),
		Credential: credentialctrl.NewController(credIndex, sessions),
		Session:    sessionctrl.NewController(sessions),
		Health:     healthctrl.NewController(s, cacheCli),
		Sessions:   sessions,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	// Dos eventos para armar historial.
	ctx := context.Background()
	now := time.Now().UTC()
	for i, code := range []string{"1111", "2222"} {
		ev := &types.Event{ID: fmt.Sprintf("ev%d", i+1), Name: fmt.Sprintf("Event %d", i+1), Code: code, CreatedAt: now}
		require.NoError(t, s.Set(ctx, docstore.EventPath(ev.ID), ev))
	}

	return &fixture{store: s, sessions: sessions, server: srv}
}

func (f *fixture) post(t *testing.T, path string, body any, cookie *http.Cookie) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return f.do(t, req)
}

func (f *fixture) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

// startConversion arranca la conversión y devuelve el token del link de
// verificación (echo habilitado en el fixture).
func (f *fixture) startConversion(t *testing.T, guestID, mail string) string {
	t.Helper()
	resp, out := f.post(t, "/v1/convert/start", map[string]any{
		"guest_id": guestID,
		"email":    mail,
	}, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	link, _ := out["debug_link"].(string)
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token, "debug link must carry the verification token")
	return token
}

// El caso de punta a punta: Jane asiste a dos eventos como guest, arranca la
// conversión y la cierra con password; su historial la sigue, queda logueada
// y puede operar credenciales y revocar sesiones.
func TestGuestUpgradeFlow(t *testing.T) {
	f := newFixture(t)

	// Check-in al primer evento.
	resp, out := f.post(t, "/v1/guest/register", map[string]any{
		"event_code":        "1111",
		"first_name":        "Jane",
		"last_name":         "Doe",
		"consent_signature": "sig",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	guestID := out["guest_id"].(string)
	require.NotEmpty(t, guestID)

	// Segundo evento: mismo guest, link adicional directo al store (el flujo
	// de re-check-in con guest existente no pasa por register).
	ctx := context.Background()
	link := &types.AttendanceLink{ID: "l2", OwnerID: guestID, EventID: "ev2", RegisteredAt: time.Now().UTC(), CreatedAt: time.Now().UTC()}
	require.NoError(t, f.store.Set(ctx, docstore.AttendancePath(link.ID), link))

	// Start: pending conversion + email con el link de verificación.
	token := f.startConversion(t, guestID, "jane@example.com")

	// Upgrade con password, presentando el token del link.
	resp, out = f.post(t, "/v1/convert/upgrade", map[string]any{
		"email":    "jane@example.com",
		"token":    token,
		"password": "correct-horse-battery",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(2), out["migrated_attendance_count"])
	userID := out["user_id"].(string)

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "egsid" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "upgrade must leave the caller logged in")

	// El guest quedó marcado, su historial original intacto.
	var g types.GuestRecord
	require.NoError(t, f.store.Get(ctx, docstore.GuestPath(guestID), &g))
	require.Equal(t, userID, g.ConvertedToUserID)

	// Reintentar el upgrade: la pending se consumió.
	resp, _ = f.post(t, "/v1/convert/upgrade", map[string]any{
		"email":    "jane@example.com",
		"token":    token,
		"password": "correct-horse-battery",
	}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode, "email now has an account")

	// Con la sesión puede registrar una passkey.
	resp, _ = f.post(t, "/v1/credentials", map[string]any{
		"credential_id": "Y3JlZC1pZC0x",
		"public_key":    "Y29zZS1rZXk",
	}, sessionCookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Lookup pre-auth por credential id.
	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/v1/credentials/Y3JlZC1pZC0x", nil)
	require.NoError(t, err)
	resp, out = f.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, userID, out["user_id"])

	// Revoca todas sus sesiones; la actual deja de servir.
	resp, _ = f.post(t, "/v1/sessions/revoke", map[string]any{}, sessionCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.post(t, "/v1/credentials", map[string]any{
		"credential_id": "Y3JlZC1pZC0y",
		"public_key":    "Y29zZS1rZXk",
	}, sessionCookie)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// Conocer el email del guest no alcanza para quedarse con su conversión:
// cerrar exige el token que viajó por email.
func TestUpgradeRequiresVerificationToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, out := f.post(t, "/v1/guest/register", map[string]any{
		"event_code":        "1111",
		"first_name":        "Jane",
		"last_name":         "Doe",
		"consent_signature": "sig",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	guestID := out["guest_id"].(string)

	token := f.startConversion(t, guestID, "jane@example.com")

	// Sin token: rechazado en validación.
	resp, _ = f.post(t, "/v1/convert/upgrade", map[string]any{
		"email":    "jane@example.com",
		"password": "attacker-password-1",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Token adivinado: 401 genérico, misma respuesta para complete.
	resp, _ = f.post(t, "/v1/convert/upgrade", map[string]any{
		"email":    "jane@example.com",
		"token":    "guessed-token",
		"password": "attacker-password-1",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.post(t, "/v1/convert/complete", map[string]any{
		"email":   "jane@example.com",
		"token":   "guessed-token",
		"user_id": "whoever",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// El guest sigue sin convertir y el token legítimo sigue vivo.
	var g types.GuestRecord
	require.NoError(t, f.store.Get(ctx, docstore.GuestPath(guestID), &g))
	require.Empty(t, g.ConvertedToUserID)

	resp, _ = f.post(t, "/v1/convert/upgrade", map[string]any{
		"email":    "jane@example.com",
		"token":    token,
		"password": "correct-horse-battery",
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// Sacar una passkey revoca todas las sesiones del user, la actual incluida.
func TestCredentialRemovalRevokesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	user := &types.User{ID: "u1", Email: "u1@example.com", Role: "user", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Set(ctx, docstore.UserPath("u1"), user))
	tok, err := f.sessions.Issue(ctx, user)
	require.NoError(t, err)
	cookie := &http.Cookie{Name: "egsid", Value: tok}

	resp, _ := f.post(t, "/v1/credentials", map[string]any{
		"credential_id": "Y3JlZC1pZC0x",
		"public_key":    "Y29zZS1rZXk",
	}, cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, f.server.URL+"/v1/credentials/Y3JlZC1pZC0x", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, out := f.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(0), out["remaining"])

	// La sesión que hizo el delete ya no autentica.
	resp, _ = f.post(t, "/v1/credentials", map[string]any{
		"credential_id": "Y3JlZC1pZC0y",
		"public_key":    "Y29zZS1rZXk",
	}, cookie)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthBoundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Endpoints protegidos sin sesión: 401 genérico.
	resp, out := f.post(t, "/v1/credentials", map[string]any{"credential_id": "YQ", "public_key": "YQ"}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, false, out["success"])

	// Cookie de un user común, endpoint admin: 403.
	now := time.Now().UTC()
	user := &types.User{ID: "u1", Email: "u1@example.com", Role: "user", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Set(ctx, docstore.UserPath("u1"), user))
	tok, err := f.sessions.Issue(ctx, user)
	require.NoError(t, err)
	userCookie := &http.Cookie{Name: "egsid", Value: tok}

	resp, _ = f.post(t, "/v1/admin/sessions/revoke", map[string]any{"user_id": "u2"}, userCookie)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin puede, pero no contra sí mismo.
	admin := &types.User{ID: "a1", Email: "a1@example.com", Role: "admin", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Set(ctx, docstore.UserPath("a1"), admin))
	adminTok, err := f.sessions.Issue(ctx, admin)
	require.NoError(t, err)
	adminCookie := &http.Cookie{Name: "egsid", Value: adminTok}

	resp, _ = f.post(t, "/v1/admin/sessions/revoke", map[string]any{"user_id": "a1"}, adminCookie)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "self-revocation goes through the self-service endpoint")

	resp, out = f.post(t, "/v1/admin/sessions/revoke", map[string]any{"user_id": "u1"}, adminCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "a1", out["revoked_by"])

	// La sesión de u1 quedó revocada.
	resp, _ = f.post(t, "/v1/sessions/revoke", map[string]any{}, userCookie)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminLinkGuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// Guest con un evento y un user destino preexistente.
	resp, out := f.post(t, "/v1/guest/register", map[string]any{
		"event_code":        "1111",
		"first_name":        "Sam",
		"last_name":         "Smith",
		"consent_signature": "sig",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	guestID := out["guest_id"].(string)

	target := &types.User{ID: "target", Email: "sam@example.com", Role: "user", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Set(ctx, docstore.UserPath("target"), target))

	admin := &types.User{ID: "a1", Email: "a1@example.com", Role: "admin", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Set(ctx, docstore.UserPath("a1"), admin))
	adminTok, err := f.sessions.Issue(ctx, admin)
	require.NoError(t, err)
	adminCookie := &http.Cookie{Name: "egsid", Value: adminTok}

	resp, out = f.post(t, "/v1/admin/link-guest", map[string]any{
		"guest_id":       guestID,
		"target_user_id": "target",
	}, adminCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "target", out["user_id"])
	require.Equal(t, float64(1), out["migrated_attendance_count"])

	// Repetir el link: conflicto, no duplica.
	resp, _ = f.post(t, "/v1/admin/link-guest", map[string]any{
		"guest_id":       guestID,
		"target_user_id": "target",
	}, adminCookie)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(f.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
