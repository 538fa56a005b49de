package listener

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/auth"
	"github.com/fekuna/omnipos-catalog-service/internal/broker"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	offerDTO "github.com/fekuna/omnipos-catalog-service/internal/offer/dto"
	variantDTO "github.com/fekuna/omnipos-catalog-service/internal/variant/dto"
	"github.com/segmentio/kafka-go"
)

var (
	_ MessageReader = (*kafka.Reader)(nil)
	_ Publisher     = (*broker.KafkaProducer)(nil)
)

type fakeVariants struct {
	got   *variantDTO.ReconcileVariantsInput
	actor string
}

func (f *fakeVariants) ReconcileVariants(ctx context.Context, in *variantDTO.ReconcileVariantsInput) ([]model.ProductVariant, error) {
	f.got = in
	f.actor = auth.GetActorID(ctx)
	return []model.ProductVariant{{ProductID: in.ProductID, SKU: "P1-VAR"}}, nil
}

func (f *fakeVariants) ListVariants(ctx context.Context, productID string) ([]model.ProductVariant, error) {
	return nil, nil
}

type fakeOffers struct {
	upsert *offerDTO.UpsertOfferInput
	delete *offerDTO.DeleteOfferInput
	err    error
}

func (f *fakeOffers) UpsertOffer(ctx context.Context, in *offerDTO.UpsertOfferInput) (*offerDTO.UpsertOfferResult, error) {
	f.upsert = in
	if f.err != nil {
		return nil, f.err
	}
	return &offerDTO.UpsertOfferResult{Offer: &model.Offer{SellerID: in.SellerID}}, nil
}

func (f *fakeOffers) DeleteOffer(ctx context.Context, in *offerDTO.DeleteOfferInput) (*offerDTO.DeleteOfferResult, error) {
	f.delete = in
	return &offerDTO.DeleteOfferResult{DeletedOfferIDs: []string{"o1"}}, f.err
}

func (f *fakeOffers) GetPendingChangeRequest(ctx context.Context, sellerID string, scope model.OfferScope, offerID string) (*model.ChangeRequest, error) {
	return nil, nil
}

type fakeResults struct {
	results []CommandResult
}

func (p *fakeResults) PublishJSON(ctx context.Context, key string, value any) error {
	p.results = append(p.results, value.(CommandResult))
	return nil
}

type fakeReader struct {
	messages []kafka.Message
	cancel   context.CancelFunc
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func newTestListener() (*CatalogListener, *fakeVariants, *fakeOffers, *fakeResults) {
	v := &fakeVariants{}
	o := &fakeOffers{}
	res := &fakeResults{}
	return NewCatalogListener(nil, v, o, res, logger.NewNop()), v, o, res
}

func command(t *testing.T, id, typ, actor string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(CommandEnvelope{CommandID: id, CommandType: typ, ActorID: actor, Payload: raw})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestProcessMessage_ReconcileVariants(t *testing.T) {
	l, v, _, res := newTestListener()

	payload := map[string]any{
		"product_id": " p1 ",
		"replace":    false,
		"variants": []map[string]any{
			{
				"id":            "v1",
				"sku":           "  ",
				"available_qty": 5,
				"options": []map[string]any{
					{"attribute_id": "color", "value_id": "red", "price_bump": "10.50"},
				},
			},
		},
	}
	l.processMessage(context.Background(), command(t, "c1", CommandReconcileVariants, "editor-1", payload))

	if v.got == nil {
		t.Fatal("reconciler not invoked")
	}
	if v.got.ProductID != "p1" || v.got.ReplaceMode() {
		t.Errorf("unexpected input %+v", v.got)
	}
	row := v.got.Variants[0]
	if row.SKU != nil {
		t.Errorf("blank sku should normalize to nil, got %q", *row.SKU)
	}
	if *row.ID != "v1" || *row.AvailableQty != 5 {
		t.Errorf("unexpected row %+v", row)
	}
	if row.Options[0].PriceBump == nil || row.Options[0].PriceBump.String() != "10.5" {
		t.Errorf("price bump = %v, want 10.5", row.Options[0].PriceBump)
	}
	if v.actor != "editor-1" {
		t.Errorf("actor = %q, want editor-1", v.actor)
	}

	if len(res.results) != 1 || !res.results[0].OK || res.results[0].CommandID != "c1" {
		t.Errorf("results = %+v", res.results)
	}
}

func TestProcessMessage_UpsertOfferDefaultsActive(t *testing.T) {
	l, _, o, res := newTestListener()

	payload := map[string]any{
		"seller_id":     "s1",
		"product_id":    "p1",
		"price":         "1200",
		"available_qty": 3,
		"in_stock":      true,
		"currency":      "IDR",
	}
	l.processMessage(context.Background(), command(t, "c2", CommandUpsertOffer, "", payload))

	if o.upsert == nil {
		t.Fatal("governor not invoked")
	}
	if !o.upsert.IsActive {
		t.Error("is_active should default to true")
	}
	if o.upsert.Price.String() != "1200" || o.upsert.AvailableQty != 3 || o.upsert.VariantID != nil {
		t.Errorf("unexpected input %+v", o.upsert)
	}
	if len(res.results) != 1 || !res.results[0].OK {
		t.Errorf("results = %+v", res.results)
	}
}

func TestProcessMessage_ReportsErrors(t *testing.T) {
	tests := []struct {
		name     string
		message  func(t *testing.T) []byte
		offerErr error
		wantCode string
	}{
		{
			name:     "malformed envelope",
			message:  func(t *testing.T) []byte { return []byte("{not json") },
			wantCode: "InvalidArgument",
		},
		{
			name: "unknown command",
			message: func(t *testing.T) []byte {
				return command(t, "c3", "RenameProduct", "", map[string]any{})
			},
			wantCode: "InvalidArgument",
		},
		{
			name: "missing payload",
			message: func(t *testing.T) []byte {
				data, _ := json.Marshal(map[string]any{"command_id": "c4", "command_type": CommandDeleteOffer})
				return data
			},
			wantCode: "InvalidArgument",
		},
		{
			name: "conflict from governor",
			message: func(t *testing.T) []byte {
				return command(t, "c5", CommandUpsertOffer, "", map[string]any{"seller_id": "s1", "product_id": "p1", "currency": "IDR"})
			},
			offerErr: apperror.Conflict("seller s1 owns product p1"),
			wantCode: "FailedPrecondition",
		},
		{
			name: "not found on delete",
			message: func(t *testing.T) []byte {
				return command(t, "c6", CommandDeleteOffer, "", map[string]any{"seller_id": "s1", "product_id": "p1"})
			},
			offerErr: apperror.NotFound("offer not found"),
			wantCode: "NotFound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, o, res := newTestListener()
			o.err = tt.offerErr

			l.processMessage(context.Background(), tt.message(t))

			if len(res.results) != 1 {
				t.Fatalf("expected 1 result, got %d", len(res.results))
			}
			got := res.results[0]
			if got.OK {
				t.Error("expected failure result")
			}
			if got.ErrorCode != tt.wantCode {
				t.Errorf("error code = %q, want %q", got.ErrorCode, tt.wantCode)
			}
			if got.Result != nil {
				t.Errorf("failed result carries payload %+v", got.Result)
			}
		})
	}
}

func TestStart_ConsumesUntilCancelled(t *testing.T) {
	l, _, o, res := newTestListener()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.consumer = &fakeReader{
		cancel: cancel,
		messages: []kafka.Message{
			{Value: command(t, "c1", CommandDeleteOffer, "", map[string]any{"seller_id": "s1", "product_id": "p1", "variant_id": " v1 "})},
			{Value: command(t, "c2", CommandDeleteOffer, "", map[string]any{"seller_id": "s1", "product_id": "p1"})},
		},
	}

	l.Start(ctx)

	if len(res.results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res.results))
	}
	if o.delete == nil || o.delete.VariantID != nil {
		t.Errorf("last delete input = %+v, want base delete", o.delete)
	}
}
