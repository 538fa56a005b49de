package variant

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type Repository interface {
	// GetByID returns nil, nil when the variant does not exist.
	GetByID(ctx context.Context, id string) (*model.ProductVariant, error)
	// ListByProduct returns every persisted variant of the product, disabled ones included, with options.
	ListByProduct(ctx context.Context, productID string) ([]model.ProductVariant, error)
	// ListActiveByProduct returns active, non-deleted variants with options in creation order.
	ListActiveByProduct(ctx context.Context, productID string) ([]model.ProductVariant, error)
	// LockedVariantIDs returns ids of the product's variants referenced by an active offer
	// from a seller other than ownerID.
	LockedVariantIDs(ctx context.Context, productID string, ownerID *string) (map[string]bool, error)
	// ReferencedVariantIDs returns ids of the product's variants referenced by any offer row,
	// active or not, the owner's included.
	ReferencedVariantIDs(ctx context.Context, productID string) (map[string]bool, error)

	Create(ctx context.Context, v *model.ProductVariant) error
	Update(ctx context.Context, v *model.ProductVariant) error
	// ReplaceOptions deletes the variant's option rows and inserts opts in their place.
	ReplaceOptions(ctx context.Context, variantID string, opts []model.VariantOption) error
	SoftDisable(ctx context.Context, id string) error
	// HardDelete removes the variant and its options.
	HardDelete(ctx context.Context, id string) error

	SKUExists(ctx context.Context, sku, excludeID string) (bool, error)
}
