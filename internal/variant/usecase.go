package variant

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/variant/dto"
)

type UseCase interface {
	ReconcileVariants(ctx context.Context, input *dto.ReconcileVariantsInput) ([]model.ProductVariant, error)
	ListVariants(ctx context.Context, productID string) ([]model.ProductVariant, error)
}
