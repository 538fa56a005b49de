package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/shopspring/decimal"
)

var errInjected = errors.New("injected store failure")

var _ Publisher = (*broker.KafkaProducer)(nil)

type fakeState struct {
	products       map[string]model.Product
	variants       map[string]model.ProductVariant
	offers         map[string]model.Offer
	changeRequests map[string]model.ChangeRequest
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		products:       make(map[string]model.Product, len(s.products)),
		variants:       make(map[string]model.ProductVariant, len(s.variants)),
		offers:         make(map[string]model.Offer, len(s.offers)),
		changeRequests: make(map[string]model.ChangeRequest, len(s.changeRequests)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	for k, v := range s.offers {
		c.offers[k] = v
	}
	for k, v := range s.changeRequests {
		c.changeRequests[k] = v
	}
	return c
}

// fakeStore implements offer.Repository, product.Repository, VariantLookup and database.Transactor.
type fakeStore struct {
	state  *fakeState
	failOn string
	calls  map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: &fakeState{
			products:       map[string]model.Product{},
			variants:       map[string]model.ProductVariant{},
			offers:         map[string]model.Offer{},
			changeRequests: map[string]model.ChangeRequest{},
		},
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

func (f *fakeStore) writes() int {
	n := 0
	for _, op := range []string{"CreateOffer", "UpdateStock", "DeleteOffers", "CreateChangeRequest", "OverwriteChangeRequest", "CancelPendingChangeRequests"} {
		n += f.calls[op]
	}
	return n
}

func (f *fakeStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := f.state.clone()
	if err := fn(ctx); err != nil {
		f.state = snapshot
		return err
	}
	return nil
}

func (f *fakeStore) addProduct(id string, status model.ProductStatus, ownerID *string) {
	f.state.products[id] = model.Product{
		BaseModel: model.BaseModel{ID: id},
		Title:     "product " + id,
		Status:    status,
		SellerID:  ownerID,
	}
}

func (f *fakeStore) addVariant(productID, id string) {
	f.state.variants[id] = model.ProductVariant{
		BaseModel: model.BaseModel{ID: id},
		ProductID: productID,
		SKU:       id,
		IsActive:  true,
	}
}

func (f *fakeStore) addOffer(id, sellerID, productID string, variantID *string, price int64) model.Offer {
	days := 2
	o := model.Offer{
		BaseModel:    model.BaseModel{ID: id, CreatedAt: time.Unix(int64(len(f.state.offers)+1), 0)},
		SellerID:     sellerID,
		ProductID:    productID,
		VariantID:    variantID,
		Price:        decimal.NewFromInt(price),
		Currency:     "IDR",
		LeadDays:     &days,
		AvailableQty: 10,
		InStock:      true,
		IsActive:     true,
	}
	f.state.offers[id] = o
	return o
}

func (f *fakeStore) pending(offerID string) []model.ChangeRequest {
	var out []model.ChangeRequest
	for _, cr := range f.state.changeRequests {
		if cr.OfferID == offerID && cr.Status == model.ChangeRequestPending {
			out = append(out, cr)
		}
	}
	return out
}

func sameVariant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
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
	if err := f.hit("GetVariant"); err != nil {
		return nil, err
	}
	v, ok := f.state.variants[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakeStore) FindOffer(ctx context.Context, sellerID, productID string, variantID *string) (*model.Offer, error) {
	if err := f.hit("FindOffer"); err != nil {
		return nil, err
	}
	for _, o := range f.state.offers {
		if o.SellerID == sellerID && o.ProductID == productID && sameVariant(o.VariantID, variantID) {
			return &o, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListVariantOffers(ctx context.Context, sellerID, productID string) ([]model.Offer, error) {
	if err := f.hit("ListVariantOffers"); err != nil {
		return nil, err
	}
	var out []model.Offer
	for _, o := range f.state.offers {
		if o.SellerID == sellerID && o.ProductID == productID && o.VariantID != nil {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) CreateOffer(ctx context.Context, o *model.Offer) error {
	if err := f.hit("CreateOffer"); err != nil {
		return err
	}
	f.state.offers[o.ID] = *o
	return nil
}

func (f *fakeStore) UpdateStock(ctx context.Context, o *model.Offer) error {
	if err := f.hit("UpdateStock"); err != nil {
		return err
	}
	cur := f.state.offers[o.ID]
	cur.AvailableQty = o.AvailableQty
	cur.InStock = o.InStock
	cur.UpdatedAt = o.UpdatedAt
	f.state.offers[o.ID] = cur
	return nil
}

func (f *fakeStore) DeleteOffers(ctx context.Context, ids []string) error {
	if err := f.hit("DeleteOffers"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(f.state.offers, id)
	}
	return nil
}

func (f *fakeStore) FindPendingChangeRequest(ctx context.Context, sellerID string, scope model.OfferScope, offerID string) (*model.ChangeRequest, error) {
	if err := f.hit("FindPendingChangeRequest"); err != nil {
		return nil, err
	}
	for _, cr := range f.state.changeRequests {
		if cr.SellerID == sellerID && cr.Scope == scope && cr.OfferID == offerID && cr.Status == model.ChangeRequestPending {
			return &cr, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateChangeRequest(ctx context.Context, cr *model.ChangeRequest) error {
	if err := f.hit("CreateChangeRequest"); err != nil {
		return err
	}
	f.state.changeRequests[cr.ID] = *cr
	return nil
}

func (f *fakeStore) OverwriteChangeRequest(ctx context.Context, cr *model.ChangeRequest) error {
	if err := f.hit("OverwriteChangeRequest"); err != nil {
		return err
	}
	cur, ok := f.state.changeRequests[cr.ID]
	if !ok {
		return errors.New("change request missing")
	}
	cur.Patch = cr.Patch
	cur.Status = cr.Status
	cur.RequestedBy = cr.RequestedBy
	cur.RequestedAt = cr.RequestedAt
	cur.UpdatedAt = cr.UpdatedAt
	cur.ReviewedBy, cur.ReviewedAt, cur.ReviewNote = nil, nil, nil
	f.state.changeRequests[cr.ID] = cur
	return nil
}

func (f *fakeStore) CancelPendingChangeRequests(ctx context.Context, offerIDs []string, at time.Time) (int64, error) {
	if err := f.hit("CancelPendingChangeRequests"); err != nil {
		return 0, err
	}
	targets := map[string]bool{}
	for _, id := range offerIDs {
		targets[id] = true
	}
	var n int64
	for id, cr := range f.state.changeRequests {
		if targets[cr.OfferID] && cr.Status == model.ChangeRequestPending {
			cr.Status = model.ChangeRequestCancelled
			cr.UpdatedAt = at
			f.state.changeRequests[id] = cr
			n++
		}
	}
	return n, nil
}

type fakePublisher struct {
	events []any
}

func (p *fakePublisher) PublishJSON(ctx context.Context, key string, value any) error {
	p.events = append(p.events, value)
	return nil
}
