package engine

import (
	"context"

	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/errors"
)

// GetIdentity returns the tenant's single IdentityCard, or NotFound if it
// has never been set (Reflect creates one lazily, the caller can also seed
// one directly via SetIdentity).
func (e *Engine) GetIdentity(ctx context.Context, tctx tenant.Context) (*model.IdentityCard, error) {
	card, err := e.getIdentity(ctx, tctx)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// SetIdentity replaces the tenant's IdentityCard wholesale.
func (e *Engine) SetIdentity(ctx context.Context, tctx tenant.Context, card *model.IdentityCard) error {
	if len(card.Content) > model.MaxIdentityContentLength {
		return errors.ErrValidation.WithMessagef("identity content exceeds %d characters", model.MaxIdentityContentLength)
	}
	card.UserID = tenantUserID(tctx, "")
	card.LastUpdated = e.now()
	if err := e.upsertIdentity(ctx, card); err != nil {
		return errors.ErrStorage.WithCause(err)
	}
	return nil
}
