package offer

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type Repository interface {
	// FindOffer locks and returns the seller's offer on the product (variantID nil) or on the
	// variant. Returns nil, nil when none exists.
	FindOffer(ctx context.Context, sellerID, productID string, variantID *string) (*model.Offer, error)
	ListVariantOffers(ctx context.Context, sellerID, productID string) ([]model.Offer, error)
	CreateOffer(ctx context.Context, o *model.Offer) error
	// UpdateStock writes only the immediate-apply fields.
	UpdateStock(ctx context.Context, o *model.Offer) error
	DeleteOffers(ctx context.Context, ids []string) error

	// FindPendingChangeRequest locks the pending request for (seller, scope, offer), nil when none.
	FindPendingChangeRequest(ctx context.Context, sellerID string, scope model.OfferScope, offerID string) (*model.ChangeRequest, error)
	CreateChangeRequest(ctx context.Context, cr *model.ChangeRequest) error
	// OverwriteChangeRequest replaces patch, requester and timestamps and clears resolution fields.
	// The stored snapshot is left untouched.
	OverwriteChangeRequest(ctx context.Context, cr *model.ChangeRequest) error
	CancelPendingChangeRequests(ctx context.Context, offerIDs []string, at time.Time) (int64, error)
}
