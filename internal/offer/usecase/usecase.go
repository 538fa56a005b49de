package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/auth"
	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/metrics"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/offer"
	"github.com/fekuna/omnipos-catalog-service/internal/offer/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VariantLookup resolves the target of a variant-scoped offer.
type VariantLookup interface {
	GetByID(ctx context.Context, id string) (*model.ProductVariant, error)
}

// Publisher announces committed offer transitions.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, value any) error
}

type offerUseCase struct {
	repo      offer.Repository
	products  product.Repository
	variants  VariantLookup
	tx        database.Transactor
	schema    schema.Capability
	publisher Publisher
	logger    logger.ZapLogger
	now       func() time.Time
}

// NewOfferUseCase wires the governor. publisher may be nil.
func NewOfferUseCase(
	repo offer.Repository,
	products product.Repository,
	variants VariantLookup,
	tx database.Transactor,
	caps schema.Capability,
	publisher Publisher,
	log logger.ZapLogger,
) offer.UseCase {
	return &offerUseCase{
		repo:      repo,
		products:  products,
		variants:  variants,
		tx:        tx,
		schema:    caps,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

const (
	resultCreated   = "created"
	resultApplied   = "applied"
	resultQueued    = "queued"
	resultUnchanged = "unchanged"
)

func (uc *offerUseCase) UpsertOffer(ctx context.Context, input *dto.UpsertOfferInput) (*dto.UpsertOfferResult, error) {
	if input != nil {
		input.Normalize()
	}
	if err := uc.validateUpsert(input); err != nil {
		metrics.RecordOfferUpsert(string(apperror.KindValidation))
		return nil, err
	}

	var (
		result  *dto.UpsertOfferResult
		outcome string
		diff    offer.Diff
	)
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cur, err := uc.repo.FindOffer(ctx, input.SellerID, input.ProductID, input.VariantID)
		if err != nil {
			return apperror.Storage("load offer", err)
		}
		if cur == nil {
			created, err := uc.createOffer(ctx, input)
			if err != nil {
				return err
			}
			result = &dto.UpsertOfferResult{Offer: created}
			outcome = resultCreated
			return nil
		}

		result, diff, err = uc.updateOffer(ctx, cur, input)
		if err != nil {
			return err
		}
		switch {
		case result.ReviewQueued:
			outcome = resultQueued
		case diff.ImmediateChanged():
			outcome = resultApplied
		default:
			outcome = resultUnchanged
		}
		return nil
	})
	if err != nil {
		metrics.RecordOfferUpsert(string(apperror.KindOf(err)))
		uc.logger.Error("offer upsert failed",
			zap.String("seller_id", input.SellerID),
			zap.String("product_id", input.ProductID),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.RecordOfferUpsert(outcome)
	fields := []zap.Field{
		zap.String("offer_id", result.Offer.ID),
		zap.String("seller_id", input.SellerID),
		zap.String("scope", string(result.Offer.Scope())),
		zap.String("result", outcome),
	}
	if len(diff.Review) > 0 {
		fields = append(fields, zap.Strings("review_fields", diff.Review))
	}
	uc.logger.Info("offer upserted", fields...)

	uc.publishUpsert(ctx, outcome, result)
	return result, nil
}

func (uc *offerUseCase) validateUpsert(in *dto.UpsertOfferInput) error {
	if in == nil || in.SellerID == "" {
		return apperror.Validation("seller id is required")
	}
	if in.ProductID == "" {
		return apperror.Validation("product id is required")
	}
	if in.Price.IsNegative() {
		return apperror.Validation("price must not be negative")
	}
	if in.AvailableQty < 0 {
		return apperror.Validation("available quantity must not be negative")
	}
	if in.LeadDays != nil && *in.LeadDays < 0 {
		return apperror.Validation("lead days must not be negative")
	}
	if uc.schema.HasField(model.ModelOffer, schema.FieldCurrency) && len(in.Currency) != 3 {
		return apperror.Validation("currency must be a 3-letter code")
	}
	return nil
}

// createOffer checks the target before any write. First publication needs no review.
func (uc *offerUseCase) createOffer(ctx context.Context, in *dto.UpsertOfferInput) (*model.Offer, error) {
	p, err := uc.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, apperror.Storage("load product", err)
	}
	if p == nil || p.IsDeleted {
		return nil, apperror.NotFound("product %s not found", in.ProductID)
	}
	if !p.Status.Sellable() {
		return nil, apperror.NotFound("product %s is not open for offers", in.ProductID)
	}
	if p.OwnedBy(in.SellerID) {
		return nil, apperror.Conflict("seller %s owns product %s", in.SellerID, in.ProductID)
	}

	if in.VariantID != nil {
		v, err := uc.variants.GetByID(ctx, *in.VariantID)
		if err != nil {
			return nil, apperror.Storage("load variant", err)
		}
		if v == nil || v.ProductID != p.ID || !v.Visible() {
			return nil, apperror.NotFound("variant %s not found on product %s", *in.VariantID, in.ProductID)
		}
		base, err := uc.repo.FindOffer(ctx, in.SellerID, in.ProductID, nil)
		if err != nil {
			return nil, apperror.Storage("load base offer", err)
		}
		if base == nil {
			return nil, apperror.Conflict("variant offer requires a base offer on product %s", in.ProductID)
		}
	}

	now := uc.now()
	o := &model.Offer{
		BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		SellerID:     in.SellerID,
		ProductID:    in.ProductID,
		VariantID:    in.VariantID,
		Price:        in.Price,
		Currency:     in.Currency,
		LeadDays:     in.LeadDays,
		AvailableQty: in.AvailableQty,
		InStock:      in.InStock,
		IsActive:     in.IsActive,
	}
	if err := uc.repo.CreateOffer(ctx, o); err != nil {
		return nil, apperror.Storage("create offer", err)
	}
	return o, nil
}

// updateOffer applies stock fields directly and funnels review-gated fields into the
// single pending change request for the offer.
func (uc *offerUseCase) updateOffer(ctx context.Context, cur *model.Offer, in *dto.UpsertOfferInput) (*dto.UpsertOfferResult, offer.Diff, error) {
	next := *cur
	diff := offer.Evaluate(uc.schema, cur, in, &next)
	now := uc.now()

	if diff.ImmediateChanged() {
		next.UpdatedAt = now
		if err := uc.repo.UpdateStock(ctx, &next); err != nil {
			return nil, diff, apperror.Storage("update offer stock", err)
		}
	}

	result := &dto.UpsertOfferResult{Offer: &next}
	if !diff.ReviewChanged() {
		return result, diff, nil
	}

	requester := auth.GetActorID(ctx)
	if requester == "" {
		requester = in.SellerID
	}

	cr, err := uc.repo.FindPendingChangeRequest(ctx, cur.SellerID, cur.Scope(), cur.ID)
	if err != nil {
		return nil, diff, apperror.Storage("load pending change request", err)
	}

	if cr != nil {
		// The snapshot keeps the values seen at first divergence.
		cr.Patch = diff.Patch
		cr.Status = model.ChangeRequestPending
		cr.RequestedBy = requester
		cr.RequestedAt = now
		cr.ReviewedBy = nil
		cr.ReviewedAt = nil
		cr.ReviewNote = nil
		cr.UpdatedAt = now
		if err := uc.repo.OverwriteChangeRequest(ctx, cr); err != nil {
			return nil, diff, apperror.Storage("overwrite change request", err)
		}
	} else {
		snapshot := model.SnapshotOf(cur)
		cr = &model.ChangeRequest{
			BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			SellerID:    cur.SellerID,
			Scope:       cur.Scope(),
			OfferID:     cur.ID,
			Patch:       diff.Patch,
			Snapshot:    &snapshot,
			Status:      model.ChangeRequestPending,
			RequestedBy: requester,
			RequestedAt: now,
		}
		if err := uc.repo.CreateChangeRequest(ctx, cr); err != nil {
			return nil, diff, apperror.Storage("create change request", err)
		}
	}

	result.ReviewQueued = true
	result.ChangeRequest = cr
	return result, diff, nil
}

func (uc *offerUseCase) DeleteOffer(ctx context.Context, input *dto.DeleteOfferInput) (*dto.DeleteOfferResult, error) {
	if input == nil || input.SellerID == "" {
		return nil, apperror.Validation("seller id is required")
	}
	if input.ProductID == "" {
		return nil, apperror.Validation("product id is required")
	}

	result := &dto.DeleteOfferResult{}
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		target, err := uc.repo.FindOffer(ctx, input.SellerID, input.ProductID, input.VariantID)
		if err != nil {
			return apperror.Storage("load offer", err)
		}
		if target == nil {
			return apperror.NotFound("offer not found for seller %s on product %s", input.SellerID, input.ProductID)
		}

		ids := []string{target.ID}
		if target.Scope() == model.OfferScopeBase {
			variantOffers, err := uc.repo.ListVariantOffers(ctx, input.SellerID, input.ProductID)
			if err != nil {
				return apperror.Storage("load variant offers", err)
			}
			for _, o := range variantOffers {
				ids = append(ids, o.ID)
			}
		}

		cancelled, err := uc.repo.CancelPendingChangeRequests(ctx, ids, uc.now())
		if err != nil {
			return apperror.Storage("cancel change requests", err)
		}
		if err := uc.repo.DeleteOffers(ctx, ids); err != nil {
			return apperror.Storage("delete offers", err)
		}
		result.DeletedOfferIDs = ids
		result.CancelledRequests = cancelled
		return nil
	})
	if err != nil {
		uc.logger.Error("offer delete failed",
			zap.String("seller_id", input.SellerID),
			zap.String("product_id", input.ProductID),
			zap.Error(err),
		)
		return nil, err
	}

	uc.logger.Info("offers deleted",
		zap.String("seller_id", input.SellerID),
		zap.String("product_id", input.ProductID),
		zap.Strings("offer_ids", result.DeletedOfferIDs),
		zap.Int64("cancelled_requests", result.CancelledRequests),
	)
	uc.publish(ctx, dto.OfferEvent{
		EventType: "OfferDeleted",
		SellerID:  input.SellerID,
		ProductID: input.ProductID,
		OfferIDs:  result.DeletedOfferIDs,
		Timestamp: uc.now(),
	})
	return result, nil
}

func (uc *offerUseCase) GetPendingChangeRequest(ctx context.Context, sellerID string, scope model.OfferScope, offerID string) (*model.ChangeRequest, error) {
	if sellerID == "" || offerID == "" {
		return nil, apperror.Validation("seller id and offer id are required")
	}
	if scope != model.OfferScopeBase && scope != model.OfferScopeVariant {
		return nil, apperror.Validation("unknown offer scope %q", scope)
	}

	cr, err := uc.repo.FindPendingChangeRequest(ctx, sellerID, scope, offerID)
	if err != nil {
		return nil, apperror.Storage("load pending change request", err)
	}
	if cr == nil {
		return nil, apperror.NotFound("no pending change request for offer %s", offerID)
	}
	return cr, nil
}

func (uc *offerUseCase) publishUpsert(ctx context.Context, outcome string, result *dto.UpsertOfferResult) {
	var eventType string
	switch outcome {
	case resultCreated:
		eventType = "OfferCreated"
	case resultApplied:
		eventType = "OfferStockUpdated"
	case resultQueued:
		eventType = "OfferChangeRequested"
	default:
		return
	}

	event := dto.OfferEvent{
		EventType: eventType,
		SellerID:  result.Offer.SellerID,
		ProductID: result.Offer.ProductID,
		OfferIDs:  []string{result.Offer.ID},
		Timestamp: uc.now(),
	}
	if result.ChangeRequest != nil {
		event.ChangeRequestID = result.ChangeRequest.ID
		event.Patch = &result.ChangeRequest.Patch
	}
	uc.publish(ctx, event)
}

// publish runs after commit; a failure only logs.
func (uc *offerUseCase) publish(ctx context.Context, event dto.OfferEvent) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishJSON(ctx, event.ProductID, event); err != nil {
		uc.logger.Warn("failed to publish offer event",
			zap.String("event_type", event.EventType),
			zap.String("product_id", event.ProductID),
			zap.Error(err),
		)
	}
}
