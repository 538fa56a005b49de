package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/schema"
)

var errInjected = errors.New("injected store failure")

var _ Publisher = (*broker.KafkaProducer)(nil)

type fakeState struct {
	products map[string]model.Product
	variants map[string]model.ProductVariant
	options  map[string][]model.VariantOption
	// offers maps variant id to the sellers holding an active offer on it.
	offers map[string][]string
	// inactive maps variant id to the sellers holding an inactive offer on it.
	inactive map[string][]string
	seq      int
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		products: make(map[string]model.Product, len(s.products)),
		variants: make(map[string]model.ProductVariant, len(s.variants)),
		options:  make(map[string][]model.VariantOption, len(s.options)),
		offers:   make(map[string][]string, len(s.offers)),
		inactive: make(map[string][]string, len(s.inactive)),
		seq:      s.seq,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	for k, v := range s.options {
		c.options[k] = append([]model.VariantOption(nil), v...)
	}
	for k, v := range s.offers {
		c.offers[k] = append([]string(nil), v...)
	}
	for k, v := range s.inactive {
		c.inactive[k] = append([]string(nil), v...)
	}
	return c
}

// fakeStore implements variant.Repository, product.Repository and database.Transactor.
type fakeStore struct {
	state  *fakeState
	caps   schema.Capability
	failOn string
	calls  map[string]int
}

func newFakeStore(caps schema.Capability) *fakeStore {
	return &fakeStore{
		state: &fakeState{
			products: map[string]model.Product{},
			variants: map[string]model.ProductVariant{},
			options:  map[string][]model.VariantOption{},
			offers:   map[string][]string{},
			inactive: map[string][]string{},
		},
		caps:  caps,
		calls: map[string]int{},
	}
}

func (f *fakeStore) hit(op string) error {
	f.calls[op]++
	if f.failOn == op {
		return errInjected
	}
	return nil
}

func (f *fakeStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := f.state.clone()
	if err := fn(ctx); err != nil {
		f.state = snapshot
		return err
	}
	return nil
}

func (f *fakeStore) addProduct(id string, ownerID *string, basePrice *string) {
	p := model.Product{
		BaseModel: model.BaseModel{ID: id},
		Title:     "product " + id,
		Status:    model.ProductStatusLive,
		SellerID:  ownerID,
	}
	if basePrice != nil {
		d := mustDecimal(*basePrice)
		p.BasePrice = &d
	}
	f.state.products[id] = p
}

func (f *fakeStore) addVariant(productID, id, sku string, pairs ...string) {
	f.state.seq++
	f.state.variants[id] = model.ProductVariant{
		BaseModel: model.BaseModel{ID: id, CreatedAt: time.Unix(int64(f.state.seq), 0)},
		ProductID: productID,
		SKU:       sku,
		InStock:   true,
		IsActive:  true,
	}
	var opts []model.VariantOption
	for i := 0; i+1 < len(pairs); i += 2 {
		opts = append(opts, model.VariantOption{
			ID:          fmt.Sprintf("%s-opt-%d", id, i/2),
			VariantID:   id,
			AttributeID: pairs[i],
			ValueID:     pairs[i+1],
		})
	}
	f.state.options[id] = opts
}

func (f *fakeStore) addOffer(variantID, sellerID string) {
	f.state.offers[variantID] = append(f.state.offers[variantID], sellerID)
}

func (f *fakeStore) addInactiveOffer(variantID, sellerID string) {
	f.state.inactive[variantID] = append(f.state.inactive[variantID], sellerID)
}

func (f *fakeStore) FindByID(ctx context.Context, id string) (*model.Product, error) {
	if err := f.hit("FindProduct"); err != nil {
		return nil, err
	}
	p, ok := f.state.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*model.ProductVariant, error) {
	if err := f.hit("GetByID"); err != nil {
		return nil, err
	}
	v, ok := f.state.variants[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakeStore) ordered(productID string, keep func(model.ProductVariant) bool) []model.ProductVariant {
	out := []model.ProductVariant{}
	for _, v := range f.state.variants {
		if v.ProductID == productID && keep(v) {
			v.Options = append([]model.VariantOption(nil), f.state.options[v.ID]...)
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *fakeStore) ListByProduct(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	if err := f.hit("ListByProduct"); err != nil {
		return nil, err
	}
	return f.ordered(productID, func(model.ProductVariant) bool { return true }), nil
}

func (f *fakeStore) ListActiveByProduct(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	if err := f.hit("ListActiveByProduct"); err != nil {
		return nil, err
	}
	return f.ordered(productID, func(v model.ProductVariant) bool { return v.Visible() }), nil
}

func (f *fakeStore) LockedVariantIDs(ctx context.Context, productID string, ownerID *string) (map[string]bool, error) {
	if err := f.hit("LockedVariantIDs"); err != nil {
		return nil, err
	}
	locked := map[string]bool{}
	for variantID, sellers := range f.state.offers {
		v, ok := f.state.variants[variantID]
		if !ok || v.ProductID != productID {
			continue
		}
		for _, s := range sellers {
			if ownerID == nil || s != *ownerID {
				locked[variantID] = true
			}
		}
	}
	return locked, nil
}

func (f *fakeStore) ReferencedVariantIDs(ctx context.Context, productID string) (map[string]bool, error) {
	if err := f.hit("ReferencedVariantIDs"); err != nil {
		return nil, err
	}
	referenced := map[string]bool{}
	for _, m := range []map[string][]string{f.state.offers, f.state.inactive} {
		for variantID, sellers := range m {
			if v, ok := f.state.variants[variantID]; ok && v.ProductID == productID && len(sellers) > 0 {
				referenced[variantID] = true
			}
		}
	}
	return referenced, nil
}

func (f *fakeStore) Create(ctx context.Context, v *model.ProductVariant) error {
	if err := f.hit("Create"); err != nil {
		return err
	}
	f.state.seq++
	stored := *v
	stored.Options = nil
	stored.CreatedAt = time.Unix(int64(f.state.seq), 0)
	f.state.variants[v.ID] = stored
	return nil
}

func (f *fakeStore) Update(ctx context.Context, v *model.ProductVariant) error {
	if err := f.hit("Update"); err != nil {
		return err
	}
	cur, ok := f.state.variants[v.ID]
	if !ok {
		return fmt.Errorf("variant %s missing", v.ID)
	}
	stored := *v
	stored.Options = nil
	stored.CreatedAt = cur.CreatedAt
	f.state.variants[v.ID] = stored
	return nil
}

func (f *fakeStore) ReplaceOptions(ctx context.Context, variantID string, opts []model.VariantOption) error {
	if err := f.hit("ReplaceOptions"); err != nil {
		return err
	}
	f.state.options[variantID] = append([]model.VariantOption(nil), opts...)
	return nil
}

func (f *fakeStore) SoftDisable(ctx context.Context, id string) error {
	if err := f.hit("SoftDisable"); err != nil {
		return err
	}
	v := f.state.variants[id]
	if f.caps.HasField(model.ModelVariant, schema.FieldIsActive) {
		v.IsActive = false
	}
	if f.caps.HasField(model.ModelVariant, schema.FieldIsDeleted) {
		v.IsDeleted = true
	}
	f.state.variants[id] = v
	return nil
}

// HardDelete mirrors the offers foreign key: a variant any offer references cannot be deleted.
func (f *fakeStore) HardDelete(ctx context.Context, id string) error {
	if err := f.hit("HardDelete"); err != nil {
		return err
	}
	if len(f.state.offers[id]) > 0 || len(f.state.inactive[id]) > 0 {
		return fmt.Errorf("variant %s is referenced by an offer", id)
	}
	delete(f.state.options, id)
	delete(f.state.variants, id)
	return nil
}

func (f *fakeStore) SKUExists(ctx context.Context, sku, excludeID string) (bool, error) {
	if err := f.hit("SKUExists"); err != nil {
		return false, err
	}
	for id, v := range f.state.variants {
		if v.SKU == sku && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// fakeCache records keys; it never errors.
type fakeCache struct {
	data    map[string][]model.ProductVariant
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]model.ProductVariant{}}
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	*(dest.(*[]model.ProductVariant)) = v
	return true, nil
}

func (c *fakeCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.data[key] = value.([]model.ProductVariant)
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

type fakePublisher struct {
	events []any
}

func (p *fakePublisher) PublishJSON(ctx context.Context, key string, value any) error {
	p.events = append(p.events, value)
	return nil
}
