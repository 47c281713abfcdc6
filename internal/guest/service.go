// Package guest maneja el registro de guests y la validación de códigos de
// evento.
package guest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/eventgate/internal/cache"
	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
	"github.com/dropDatabas3/eventgate/internal/validation"
)

// eventCodeCacheTTL acota cuánto vive un evento en el cache de códigos.
const eventCodeCacheTTL = 5 * time.Minute

// Errores del service.
var (
	ErrEventNotFound = errors.New("guest: event not found")
	ErrInvalidCode   = errors.New("guest: invalid event code")
)

// RegisterRequest son los datos de registro de un guest.
type RegisterRequest struct {
	EventCode        string
	FirstName        string
	LastName         string
	Email            string // opcional
	Phone            string // opcional
	ConsentSignature string
}

// Service implementa registro y validación de códigos.
type Service struct {
	store docstore.Store
	cache cache.Client
	now   func() time.Time
}

// NewService crea el service.
func NewService(s docstore.Store, c cache.Client) *Service {
	return &Service{store: s, cache: c, now: time.Now}
}

// ValidateCode resuelve un código de 4 dígitos al evento, con read-through
// cache: el código se tipea en cada check-in y el evento casi no cambia.
func (s *Service) ValidateCode(ctx context.Context, code string) (*types.Event, error) {
	if err := validation.EventCode(code); err != nil {
		return nil, ErrInvalidCode
	}

	key := "evcode:" + code
	if cached, err := s.cache.Get(ctx, key); err == nil {
		var ev types.Event
		if json.Unmarshal([]byte(cached), &ev) == nil {
			return &ev, nil
		}
	}

	snaps, err := s.store.Query(ctx, docstore.CollectionEvents, "code", code)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrEventNotFound
	}
	var ev types.Event
	if err := snaps[0].Decode(&ev); err != nil {
		return nil, err
	}

	if b, err := json.Marshal(&ev); err == nil {
		_ = s.cache.Set(ctx, key, string(b), eventCodeCacheTTL)
	}
	return &ev, nil
}

// Register crea el GuestRecord y su AttendanceLink para el evento en una
// única transacción. Email y teléfono son opcionales; la firma de
// consentimiento no.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*types.GuestRecord, *types.Event, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("guest"), logger.Op("Register"))

	ev, err := s.ValidateCode(ctx, req.EventCode)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	g := &types.GuestRecord{
		ID:               uuid.NewString(),
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            validation.NormalizeEmail(req.Email),
		Phone:            req.Phone,
		OriginEventID:    ev.ID,
		ConsentSignature: req.ConsentSignature,
		ConsentSignedAt:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	link := &types.AttendanceLink{
		ID:           uuid.NewString(),
		OwnerID:      g.ID,
		EventID:      ev.ID,
		RegisteredAt: now,
		CreatedAt:    now,
	}

	err = s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		if err := tx.Create(docstore.GuestPath(g.ID), g); err != nil {
			return err
		}
		return tx.Create(docstore.AttendancePath(link.ID), link)
	})
	if err != nil {
		return nil, nil, err
	}

	log.Info("guest registered", logger.GuestID(g.ID), logger.EventID(ev.ID))
	return g, ev, nil
}
