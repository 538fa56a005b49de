package offer

import (
	"context"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/offer/dto"
)

type UseCase interface {
	UpsertOffer(ctx context.Context, input *dto.UpsertOfferInput) (*dto.UpsertOfferResult, error)
	DeleteOffer(ctx context.Context, input *dto.DeleteOfferInput) (*dto.DeleteOfferResult, error)
	GetPendingChangeRequest(ctx context.Context, sellerID string, scope model.OfferScope, offerID string) (*model.ChangeRequest, error)
}
