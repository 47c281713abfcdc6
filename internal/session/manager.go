// Package session emite, valida y revoca sesiones (cookie firmada y
// cifrada).
//
// El JWT firmado se envuelve en secretbox (AES-256-GCM) antes de viajar:
// los claims no son legibles del lado del cliente. No hay tabla de sesiones
// server-side: la sesión viaja completa en la cookie y la única lectura
// adicional por request es el chequeo del revocation log, que nunca se
// saltea.
package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/eventgate/internal/audit"
	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/identity"
	"github.com/dropDatabas3/eventgate/internal/metrics"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/security/secretbox"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
)

// MinSecretLen es el largo mínimo del secret de firma.
const MinSecretLen = 32

// DefaultTTL es la expiración absoluta de una sesión (no sliding).
const DefaultTTL = 90 * 24 * time.Hour

// Errores de sesión. El API boundary los colapsa en un authentication error
// genérico; acá se distinguen para logs y métricas.
var (
	ErrSecretTooShort = fmt.Errorf("session: signing secret must be at least %d bytes", MinSecretLen)
	ErrInvalid        = errors.New("session: invalid session")
	ErrExpired        = errors.New("session: expired")
	ErrEnvMismatch    = errors.New("session: environment mismatch")
	ErrRevoked        = errors.New("session: revoked")
)

// Claims son los claims de la cookie de sesión.
type Claims struct {
	jwtv5.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Role    string `json:"role,omitempty"`
	Consent bool   `json:"consent,omitempty"`

	// Env es el entorno donde se emitió la sesión. La validación rechaza
	// mismatches (replay cross-environment). Tokens legacy sin tag se
	// aceptan por compatibilidad.
	Env string `json:"env,omitempty"`
}

// Config del manager.
type Config struct {
	// Secret es el secret de firma activo. Mínimo 32 bytes; si falta o es
	// corto, la construcción falla: secret mal configurado es error fatal de
	// configuración, no un warning.
	Secret string

	// PreviousSecret es el secret anterior durante una rotación. Opcional.
	// Las sesiones firmadas con él siguen válidas solo hasta su expiración
	// natural: la ventana de rotación queda acotada por el TTL.
	PreviousSecret string

	// Env es el entorno de servicio actual (dev|staging|prod).
	Env string

	// TTL de las sesiones nuevas. Default: 90 días.
	TTL time.Duration

	// CookieName, CookieDomain, Secure configuran la cookie.
	CookieName   string
	CookieDomain string
	Secure       bool
}

// Manager emite y valida sesiones.
type Manager struct {
	cfg      Config
	store    docstore.Store
	provider identity.Provider
	now      func() time.Time

	// Claves de cifrado derivadas de los secrets de firma; prevKey es nil
	// si no hay rotación en curso.
	key     []byte
	prevKey []byte
}

// NewManager valida la configuración y construye el manager.
func NewManager(cfg Config, s docstore.Store, p identity.Provider) (*Manager, error) {
	if err := ValidateSecret(cfg.Secret); err != nil {
		return nil, err
	}
	if cfg.PreviousSecret != "" {
		if err := ValidateSecret(cfg.PreviousSecret); err != nil {
			return nil, fmt.Errorf("previous secret: %w", err)
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "egsid"
	}
	m := &Manager{cfg: cfg, store: s, provider: p, now: time.Now, key: deriveKey(cfg.Secret)}
	if cfg.PreviousSecret != "" {
		m.prevKey = deriveKey(cfg.PreviousSecret)
	}
	return m, nil
}

// deriveKey deriva la clave AES-256 del secret de firma.
func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// ValidateSecret chequea el largo mínimo del secret.
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLen {
		return ErrSecretTooShort
	}
	return nil
}

// Issue emite una sesión firmada con el secret activo, con expiración
// absoluta y el tag del entorno actual.
func (m *Manager) Issue(ctx context.Context, u *types.User) (string, error) {
	now := m.now().UTC()
	claims := Claims{
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.cfg.TTL)),
			ID:        uuid.NewString(),
		},
		Name:    u.FirstName + " " + u.LastName,
		Role:    u.Role,
		Consent: u.ConsentSignature != "",
		Env:     m.cfg.Env,
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(m.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("session: sign: %w", err)
	}

	// La cookie viaja cifrada: los claims no se leen del lado del cliente.
	sealed, err := secretbox.Seal(m.key, []byte(signed))
	if err != nil {
		return "", fmt.Errorf("session: seal: %w", err)
	}
	return sealed, nil
}

// Validate descifra el token (clave actual, después la previa si hay
// rotación en curso) y verifica firma, expiración, entorno y revocación. El
// chequeo de revocación es una lectura al store en cada request y es
// security-critical: no se omite por latencia.
func (m *Manager) Validate(ctx context.Context, token string) (*Claims, error) {
	signed, err := secretbox.Open(m.key, token)
	if err != nil && m.prevKey != nil {
		signed, err = secretbox.Open(m.prevKey, token)
	}
	if err != nil {
		metrics.SessionValidationsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalid
	}

	claims, err := m.parse(string(signed), m.cfg.Secret)
	if err != nil && m.cfg.PreviousSecret != "" && errors.Is(err, jwtv5.ErrTokenSignatureInvalid) {
		// Rotación dual-secret: verificar también contra el secret anterior.
		claims, err = m.parse(string(signed), m.cfg.PreviousSecret)
	}
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			metrics.SessionValidationsTotal.WithLabelValues("expired").Inc()
			return nil, ErrExpired
		}
		metrics.SessionValidationsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalid
	}

	// Replay cross-environment. Claims sin tag (emitidos antes de que
	// existiera) se aceptan.
	if claims.Env != "" && claims.Env != m.cfg.Env {
		metrics.SessionValidationsTotal.WithLabelValues("env_mismatch").Inc()
		logger.From(ctx).Warn("session environment mismatch",
			logger.String("session_env", claims.Env), logger.String("serving_env", m.cfg.Env))
		return nil, ErrEnvMismatch
	}

	// Revocación: rechazar sesiones emitidas antes del último evento.
	revokedAt, err := m.latestRevocation(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if revokedAt != nil && claims.IssuedAt != nil && !claims.IssuedAt.Time.After(*revokedAt) {
		metrics.SessionValidationsTotal.WithLabelValues("revoked").Inc()
		return nil, ErrRevoked
	}

	metrics.SessionValidationsTotal.WithLabelValues("ok").Inc()
	return claims, nil
}

func (m *Manager) parse(token, secret string) (*Claims, error) {
	var claims Claims
	_, err := jwtv5.ParseWithClaims(token, &claims, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// Revoke agrega un SessionRevocationEvent para el user y, belt-and-suspenders,
// invalida sus refresh tokens en el identity provider. Toda sesión emitida
// antes del evento queda rechazada por Validate.
func (m *Manager) Revoke(ctx context.Context, userID string, reason types.RevocationReason, actor string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("session"), logger.Op("Revoke"), logger.UserID(userID))

	ev := &types.SessionRevocationEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Reason:    reason,
		Actor:     actor,
		RevokedAt: m.now().UTC(),
	}
	if err := m.store.Set(ctx, docstore.RevocationPath(ev.ID), ev); err != nil {
		return err
	}

	if err := m.provider.RevokeAllTokens(ctx, userID); err != nil && !errors.Is(err, identity.ErrNotFound) {
		// El revocation event ya está persistido; el provider se loguea y
		// se reintenta fuera de banda.
		log.Warn("identity provider token revocation failed", logger.Err(err))
	}

	metrics.SessionsRevokedTotal.WithLabelValues(string(reason)).Inc()
	audit.Log(ctx, "session.revoked", map[string]any{
		"user_id": userID,
		"reason":  string(reason),
		"actor":   actor,
	})
	log.Info("sessions revoked", logger.String("reason", string(reason)))
	return nil
}

// latestRevocation retorna el timestamp del último evento de revocación del
// user, o nil si nunca se revocó.
func (m *Manager) latestRevocation(ctx context.Context, userID string) (*time.Time, error) {
	snaps, err := m.store.Query(ctx, docstore.CollectionRevocations, "user_id", userID)
	if err != nil {
		return nil, err
	}
	var latest *time.Time
	for _, s := range snaps {
		var ev types.SessionRevocationEvent
		if err := s.Decode(&ev); err != nil {
			return nil, err
		}
		t := ev.RevokedAt
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest, nil
}

// BuildCookie arma la cookie de sesión.
func (m *Manager) BuildCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Domain:   m.cfg.CookieDomain,
		MaxAge:   int(m.cfg.TTL / time.Second),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// DeletionCookie arma una cookie que expira inmediatamente para limpiar la
// sesión del browser.
func (m *Manager) DeletionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.cfg.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieName expone el nombre configurado (middlewares).
func (m *Manager) CookieName() string { return m.cfg.CookieName }
