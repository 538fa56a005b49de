package dto

import (
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
)

type UpsertOfferResult struct {
	Offer         *model.Offer         `json:"offer"`
	ReviewQueued  bool                 `json:"reviewQueued"`
	ChangeRequest *model.ChangeRequest `json:"changeRequest,omitempty"`
}

type DeleteOfferResult struct {
	DeletedOfferIDs   []string `json:"deletedOfferIds"`
	CancelledRequests int64    `json:"cancelledRequests"`
}

// OfferEvent is published after an offer transition commits.
type OfferEvent struct {
	EventType       string            `json:"event_type"`
	SellerID        string            `json:"seller_id"`
	ProductID       string            `json:"product_id"`
	OfferIDs        []string          `json:"offer_ids"`
	ChangeRequestID string            `json:"change_request_id,omitempty"`
	Patch           *model.OfferPatch `json:"patch,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}
