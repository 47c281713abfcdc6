package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/eventgate/internal/domain/types"
	"github.com/dropDatabas3/eventgate/internal/observability/logger"
	"github.com/dropDatabas3/eventgate/internal/security/password"
	"github.com/dropDatabas3/eventgate/internal/store/docstore"
	"github.com/dropDatabas3/eventgate/internal/validation"
)

const minPasswordLen = 10

// storeProvider implementa Provider sobre el docstore: la identidad vive en
// el documento del user. Suficiente para un deployment self-contained; un
// IdP externo solo tiene que implementar la interfaz.
type storeProvider struct {
	store docstore.Store
	now   func() time.Time
}

// NewStoreProvider crea un Provider respaldado por el docstore.
func NewStoreProvider(s docstore.Store) Provider {
	return &storeProvider{store: s, now: time.Now}
}

func (p *storeProvider) CreateIdentity(ctx context.Context, n NewIdentity) (*types.User, error) {
	log := logger.From(ctx).With(logger.Layer("provider"), logger.Component("identity"), logger.Op("CreateIdentity"))

	email := validation.NormalizeEmail(n.Email)
	if _, err := p.LookupByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	}

	var hash string
	if n.Password != "" {
		if len(n.Password) < minPasswordLen {
			return nil, ErrWeakPassword
		}
		h, err := password.Hash(password.Default, n.Password)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	now := p.now().UTC()
	u := &types.User{
		ID:           uuid.NewString(),
		Email:        email,
		FirstName:    n.FirstName,
		LastName:     n.LastName,
		Phone:        n.Phone,
		Role:         "user",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		return tx.Create(docstore.UserPath(u.ID), u)
	}); err != nil {
		return nil, err
	}
	log.Info("identity created", logger.UserID(u.ID))
	return u, nil
}

func (p *storeProvider) UpdateIdentity(ctx context.Context, id string, upd Update) error {
	fields := map[string]any{"updated_at": p.now().UTC()}
	if upd.Email != nil {
		fields["email"] = validation.NormalizeEmail(*upd.Email)
	}
	if upd.EmailVerified != nil {
		fields["email_verified"] = *upd.EmailVerified
	}
	if upd.Password != nil {
		if len(*upd.Password) < minPasswordLen {
			return ErrWeakPassword
		}
		h, err := password.Hash(password.Default, *upd.Password)
		if err != nil {
			return err
		}
		fields["password_hash"] = h
	}

	err := p.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		return tx.Update(docstore.UserPath(id), fields)
	})
	if docstore.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (p *storeProvider) LookupByEmail(ctx context.Context, email string) (*types.User, error) {
	snaps, err := p.store.Query(ctx, docstore.CollectionUsers, "email", validation.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	var u types.User
	if err := snaps[0].Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *storeProvider) RevokeAllTokens(ctx context.Context, id string) error {
	err := p.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		return tx.Update(docstore.UserPath(id), map[string]any{
			"tokens_invalid_after": p.now().UTC(),
		})
	})
	if docstore.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
