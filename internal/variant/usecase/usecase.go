package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/metrics"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/schema"
	"github.com/fekuna/omnipos-catalog-service/internal/variant"
	"github.com/fekuna/omnipos-catalog-service/internal/variant/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cache is the read-through store for active variant lists.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Publisher announces committed reconciliations.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, value any) error
}

type Options struct {
	SKUMaxAttempts int
	CacheTTL       time.Duration
}

type variantUseCase struct {
	repo      variant.Repository
	products  product.Repository
	tx        database.Transactor
	schema    schema.Capability
	cache     Cache
	publisher Publisher
	logger    logger.ZapLogger
	opts      Options
	now       func() time.Time
}

// NewVariantUseCase wires the reconciler. cache and publisher may be nil.
func NewVariantUseCase(
	repo variant.Repository,
	products product.Repository,
	tx database.Transactor,
	caps schema.Capability,
	cache Cache,
	publisher Publisher,
	log logger.ZapLogger,
	opts Options,
) variant.UseCase {
	if opts.SKUMaxAttempts <= 0 {
		opts.SKUMaxAttempts = variant.DefaultSKUMaxAttempts
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &variantUseCase{
		repo:      repo,
		products:  products,
		tx:        tx,
		schema:    caps,
		cache:     cache,
		publisher: publisher,
		logger:    log,
		opts:      opts,
		now:       time.Now,
	}
}

func cacheKey(productID string) string {
	return fmt.Sprintf("variants:product:%s", productID)
}

func (uc *variantUseCase) ListVariants(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	if productID == "" {
		return nil, apperror.Validation("product id is required")
	}

	key := cacheKey(productID)
	if uc.cache != nil {
		var cached []model.ProductVariant
		hit, err := uc.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			uc.logger.Warn("variant cache read failed", zap.String("product_id", productID), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	variants, err := uc.repo.ListActiveByProduct(ctx, productID)
	if err != nil {
		return nil, apperror.Storage("list variants", err)
	}

	if uc.cache != nil {
		if err := uc.cache.SetJSON(ctx, key, variants, uc.opts.CacheTTL); err != nil {
			uc.logger.Warn("variant cache write failed", zap.String("product_id", productID), zap.Error(err))
		}
	}
	return variants, nil
}

func (uc *variantUseCase) ReconcileVariants(ctx context.Context, input *dto.ReconcileVariantsInput) ([]model.ProductVariant, error) {
	start := uc.now()
	if err := validateReconcileInput(input); err != nil {
		metrics.RecordReconcile(string(apperror.KindValidation), time.Since(start))
		return nil, err
	}

	var (
		result []model.ProductVariant
		report *reconcileReport
	)
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		report, err = uc.reconcile(ctx, input)
		if err != nil {
			return err
		}
		result, err = uc.repo.ListActiveByProduct(ctx, input.ProductID)
		if err != nil {
			return apperror.Storage("reload variants", err)
		}
		return nil
	})
	if err != nil {
		metrics.RecordReconcile(string(apperror.KindOf(err)), time.Since(start))
		uc.logger.Error("variant reconciliation failed",
			zap.String("product_id", input.ProductID),
			zap.Error(err),
		)
		return nil, err
	}

	metrics.RecordReconcile("ok", time.Since(start))
	for range report.disabled {
		metrics.RecordVariantRemoval(variant.RemovalSoftDisable.String())
	}
	for range report.deleted {
		metrics.RecordVariantRemoval(variant.RemovalHardDelete.String())
	}
	for range report.retained {
		metrics.RecordVariantRemoval(variant.RemovalRetain.String())
	}

	uc.logger.Info("variants reconciled",
		zap.String("product_id", input.ProductID),
		zap.Int("created", len(report.created)),
		zap.Int("updated", len(report.updated)),
		zap.Int("disabled", len(report.disabled)),
		zap.Int("deleted", len(report.deleted)),
	)

	uc.afterCommit(ctx, input.ProductID, report)
	return result, nil
}

// afterCommit invalidates the cached list and announces the change. Failures only log:
// the transaction has already committed.
func (uc *variantUseCase) afterCommit(ctx context.Context, productID string, report *reconcileReport) {
	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, cacheKey(productID)); err != nil {
			uc.logger.Warn("variant cache invalidation failed", zap.String("product_id", productID), zap.Error(err))
		}
	}
	if uc.publisher != nil {
		event := dto.VariantsReconciledEvent{
			EventType: "VariantsReconciled",
			ProductID: productID,
			Created:   report.created,
			Updated:   report.updated,
			Disabled:  report.disabled,
			Deleted:   report.deleted,
			Retained:  report.retained,
			Timestamp: uc.now(),
		}
		if err := uc.publisher.PublishJSON(ctx, productID, event); err != nil {
			uc.logger.Warn("failed to publish reconcile event", zap.String("product_id", productID), zap.Error(err))
		}
	}
}

func validateReconcileInput(input *dto.ReconcileVariantsInput) error {
	if input == nil || input.ProductID == "" {
		return apperror.Validation("product id is required")
	}
	for i, row := range input.Variants {
		for _, o := range row.Options {
			if o.AttributeID == "" || o.ValueID == "" {
				return apperror.Validation("variant %d: option requires attribute and value", i)
			}
		}
		if row.AvailableQty != nil && *row.AvailableQty < 0 {
			return apperror.Validation("variant %d: available quantity must not be negative", i)
		}
		if row.Price != nil && row.Price.IsNegative() {
			return apperror.Validation("variant %d: price must not be negative", i)
		}
	}
	return nil
}

type reconcileReport struct {
	created  []string
	updated  []string
	disabled []string
	deleted  []string
	retained []string
}

func (uc *variantUseCase) reconcile(ctx context.Context, input *dto.ReconcileVariantsInput) (*reconcileReport, error) {
	p, err := uc.products.FindByID(ctx, input.ProductID)
	if err != nil {
		return nil, apperror.Storage("load product", err)
	}
	if p == nil || p.IsDeleted {
		return nil, apperror.NotFound("product %s not found", input.ProductID)
	}

	persisted, err := uc.repo.ListByProduct(ctx, input.ProductID)
	if err != nil {
		return nil, apperror.Storage("load variants", err)
	}
	locked, err := uc.repo.LockedVariantIDs(ctx, input.ProductID, p.SellerID)
	if err != nil {
		return nil, apperror.Storage("load locked variants", err)
	}
	referenced, err := uc.repo.ReferencedVariantIDs(ctx, input.ProductID)
	if err != nil {
		return nil, apperror.Storage("load referenced variants", err)
	}

	byID := make(map[string]*model.ProductVariant, len(persisted))
	keys := newKeyIndex()
	for i := range persisted {
		v := &persisted[i]
		byID[v.ID] = v
		keys.put(variant.KeyOf(v), v)
	}

	// touched lists every variant upserted by this batch in first-touch order; kept drops
	// a variant again when a later row takes over its combination key.
	var (
		touched []*model.ProductVariant
		created = map[string]bool{}
		kept    = make(map[string]bool, len(input.Variants))
		seen    = make(map[string]bool, len(input.Variants))
	)
	claimed := variant.ClaimedSKUs{}
	uniq := variant.NewSKUUniquifier(uc.repo.SKUExists, uc.opts.SKUMaxAttempts)

	for i, row := range input.Variants {
		key := rowKey(row)

		var matched *model.ProductVariant
		if row.ID != nil {
			matched = byID[*row.ID]
		}
		if matched == nil {
			matched = keys.get(key)
		}

		if matched != nil {
			oldKey := variant.KeyOf(matched)
			if err := uc.updateVariant(ctx, p, matched, row, seen[matched.ID], uniq, claimed); err != nil {
				return nil, fmt.Errorf("variant %d: %w", i, err)
			}
			if holder := keys.get(key); holder != nil && holder != matched {
				kept[holder.ID] = false
			}
			keys.move(oldKey, key, matched)
			if !seen[matched.ID] {
				touched = append(touched, matched)
			}
			seen[matched.ID] = true
			kept[matched.ID] = true
			continue
		}

		v, err := uc.createVariant(ctx, p, row, uniq, claimed)
		if err != nil {
			return nil, fmt.Errorf("variant %d: %w", i, err)
		}
		byID[v.ID] = v
		keys.put(key, v)
		touched = append(touched, v)
		created[v.ID] = true
		seen[v.ID] = true
		kept[v.ID] = true
	}

	report := &reconcileReport{}
	for _, v := range touched {
		switch {
		case !kept[v.ID]:
		case created[v.ID]:
			report.created = append(report.created, v.ID)
		default:
			report.updated = append(report.updated, v.ID)
		}
	}

	if !input.ReplaceMode() {
		return report, nil
	}

	// Persisted variants first, then variants this batch created and later displaced.
	var candidates []*model.ProductVariant
	for i := range persisted {
		candidates = append(candidates, &persisted[i])
	}
	for _, v := range touched {
		if created[v.ID] {
			candidates = append(candidates, v)
		}
	}

	canHardDelete := uc.canHardDelete()
	canSoftDisable := uc.canSoftDisable()
	for _, v := range candidates {
		if kept[v.ID] {
			continue
		}
		action := variant.DecideRemoval(locked[v.ID], referenced[v.ID], canHardDelete, canSoftDisable)
		switch action {
		case variant.RemovalHardDelete:
			if err := uc.repo.HardDelete(ctx, v.ID); err != nil {
				return nil, apperror.Storage("delete variant", err)
			}
			report.deleted = append(report.deleted, v.ID)
		case variant.RemovalSoftDisable:
			if err := uc.repo.SoftDisable(ctx, v.ID); err != nil {
				return nil, apperror.Storage("disable variant", err)
			}
			report.disabled = append(report.disabled, v.ID)
		default:
			uc.logger.Warn("variant left in place, schema cannot disable it",
				zap.String("product_id", input.ProductID),
				zap.String("variant_id", v.ID),
				zap.Bool("locked", locked[v.ID]),
				zap.Bool("referenced", referenced[v.ID]),
			)
			report.retained = append(report.retained, v.ID)
		}
	}
	return report, nil
}

func (uc *variantUseCase) canHardDelete() bool {
	target, ok := uc.schema.ResolveRelationTarget(model.ModelVariant, schema.RelationOptions)
	return ok && target == model.ModelVariantOption
}

func (uc *variantUseCase) canSoftDisable() bool {
	return uc.schema.HasField(model.ModelVariant, schema.FieldIsActive) ||
		uc.schema.HasField(model.ModelVariant, schema.FieldIsDeleted)
}

func (uc *variantUseCase) updateVariant(
	ctx context.Context,
	p *model.Product,
	v *model.ProductVariant,
	row dto.VariantRowInput,
	alreadySeen bool,
	uniq *variant.SKUUniquifier,
	claimed variant.ClaimedSKUs,
) error {
	// A variant upserted earlier in this batch already owns its claim.
	if row.SKU != nil {
		base := variant.BaseSKU(p.ID, row.SKU)
		if !variant.SKUFitsBase(v.SKU, base) || (claimed.Has(v.SKU) && !alreadySeen) {
			sku, err := uniq.Allocate(ctx, base, claimed, v.ID)
			if err != nil {
				return err
			}
			v.SKU = sku
		}
	}
	claimed.Claim(v.SKU)

	if row.AvailableQty != nil {
		v.AvailableQty = *row.AvailableQty
	}
	if row.InStock != nil {
		v.InStock = *row.InStock
	}
	if price := uc.resolvePrice(p, row); price != nil {
		v.Price = price
	}
	v.IsActive = true
	v.IsDeleted = false
	v.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, v); err != nil {
		return apperror.Storage("update variant", err)
	}

	v.Options = buildOptions(v.ID, row.Options)
	if err := uc.repo.ReplaceOptions(ctx, v.ID, v.Options); err != nil {
		return apperror.Storage("replace variant options", err)
	}
	return nil
}

func (uc *variantUseCase) createVariant(
	ctx context.Context,
	p *model.Product,
	row dto.VariantRowInput,
	uniq *variant.SKUUniquifier,
	claimed variant.ClaimedSKUs,
) (*model.ProductVariant, error) {
	sku, err := uniq.Allocate(ctx, variant.BaseSKU(p.ID, row.SKU), claimed, "")
	if err != nil {
		return nil, err
	}

	now := uc.now()
	v := &model.ProductVariant{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		ProductID: p.ID,
		SKU:       sku,
		IsActive:  true,
	}
	if row.AvailableQty != nil {
		v.AvailableQty = *row.AvailableQty
	}
	if row.InStock != nil {
		v.InStock = *row.InStock
	} else {
		v.InStock = v.AvailableQty > 0
	}
	v.Price = uc.resolvePrice(p, row)

	if err := uc.repo.Create(ctx, v); err != nil {
		return nil, apperror.Storage("create variant", err)
	}

	v.Options = buildOptions(v.ID, row.Options)
	if err := uc.repo.ReplaceOptions(ctx, v.ID, v.Options); err != nil {
		return nil, apperror.Storage("create variant options", err)
	}
	return v, nil
}

// resolvePrice returns the row's explicit price, else base price plus option bumps.
// Nil means the price is left as it is.
func (uc *variantUseCase) resolvePrice(p *model.Product, row dto.VariantRowInput) *decimal.Decimal {
	if !uc.schema.HasField(model.ModelVariant, schema.FieldPrice) {
		return nil
	}
	if row.Price != nil {
		price := *row.Price
		return &price
	}
	if !uc.schema.HasField(model.ModelProduct, schema.FieldBasePrice) || p.BasePrice == nil {
		return nil
	}

	price := *p.BasePrice
	if uc.schema.HasField(model.ModelVariantOption, schema.FieldPriceBump) {
		for _, o := range row.Options {
			if o.PriceBump != nil {
				price = price.Add(*o.PriceBump)
			}
		}
	}
	return &price
}

func buildOptions(variantID string, in []dto.OptionInput) []model.VariantOption {
	opts := make([]model.VariantOption, len(in))
	for i, o := range in {
		opts[i] = model.VariantOption{
			ID:          uuid.New().String(),
			VariantID:   variantID,
			AttributeID: o.AttributeID,
			ValueID:     o.ValueID,
			PriceBump:   o.PriceBump,
		}
	}
	return opts
}

func rowKey(row dto.VariantRowInput) string {
	pairs := make([]variant.Pair, len(row.Options))
	for i, o := range row.Options {
		pairs[i] = variant.Pair{AttributeID: o.AttributeID, ValueID: o.ValueID}
	}
	return variant.CombinationKey(pairs)
}

// keyIndex maps combination keys to variants, preferring visible ones.
type keyIndex map[string]*model.ProductVariant

func newKeyIndex() keyIndex {
	return keyIndex{}
}

func (k keyIndex) get(key string) *model.ProductVariant {
	return k[key]
}

func (k keyIndex) put(key string, v *model.ProductVariant) {
	if cur, ok := k[key]; ok && cur.Visible() && !v.Visible() {
		return
	}
	k[key] = v
}

func (k keyIndex) move(oldKey, newKey string, v *model.ProductVariant) {
	if cur, ok := k[oldKey]; ok && cur == v {
		delete(k, oldKey)
	}
	k[newKey] = v
}
