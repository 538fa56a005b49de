package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperror"
	"github.com/fekuna/omnipos-catalog-service/internal/auth"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/offer"
	"github.com/fekuna/omnipos-catalog-service/internal/variant"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"
)

// MessageReader is the subset of kafka.Reader the listener consumes.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Publisher receives command results.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, value any) error
}

type CatalogListener struct {
	consumer   MessageReader
	variants   variant.UseCase
	offers     offer.UseCase
	results    Publisher
	logger     logger.ZapLogger
	retryDelay time.Duration
	now        func() time.Time
}

// NewCatalogListener wires the command consumer. results may be nil.
func NewCatalogListener(consumer MessageReader, variants variant.UseCase, offers offer.UseCase, results Publisher, logger logger.ZapLogger) *CatalogListener {
	return &CatalogListener{
		consumer:   consumer,
		variants:   variants,
		offers:     offers,
		results:    results,
		logger:     logger,
		retryDelay: time.Second,
		now:        time.Now,
	}
}

func (l *CatalogListener) Start(ctx context.Context) {
	l.logger.Info("Starting catalog command listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping catalog command listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(l.retryDelay)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *CatalogListener) processMessage(ctx context.Context, value []byte) {
	var cmd CommandEnvelope
	if err := json.Unmarshal(value, &cmd); err != nil {
		l.logger.Error("Failed to unmarshal command", zap.Error(err))
		l.publish(ctx, CommandResult{}, apperror.Validation("malformed command: %v", err))
		return
	}

	ctx = auth.WithActorID(ctx, cmd.ActorID)
	result, err := l.dispatch(ctx, &cmd)
	if err != nil {
		l.logger.Warn("Command failed",
			zap.String("command_id", cmd.CommandID),
			zap.String("command_type", cmd.CommandType),
			zap.Error(err),
		)
	} else {
		l.logger.Debug("Command applied",
			zap.String("command_id", cmd.CommandID),
			zap.String("command_type", cmd.CommandType),
		)
	}
	l.publish(ctx, CommandResult{CommandID: cmd.CommandID, CommandType: cmd.CommandType, Result: result}, err)
}

func (l *CatalogListener) dispatch(ctx context.Context, cmd *CommandEnvelope) (any, error) {
	switch cmd.CommandType {
	case CommandReconcileVariants:
		var p ReconcileVariantsPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return nil, err
		}
		return l.variants.ReconcileVariants(ctx, p.toInput())

	case CommandUpsertOffer:
		var p UpsertOfferPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return nil, err
		}
		return l.offers.UpsertOffer(ctx, p.toInput())

	case CommandDeleteOffer:
		var p DeleteOfferPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return nil, err
		}
		return l.offers.DeleteOffer(ctx, p.toInput())

	default:
		return nil, apperror.Validation("unknown command type %q", cmd.CommandType)
	}
}

func decodePayload(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		return apperror.Validation("command payload is required")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return apperror.Validation("malformed payload: %v", err)
	}
	return nil
}

func (l *CatalogListener) publish(ctx context.Context, res CommandResult, err error) {
	if l.results == nil {
		return
	}
	res.Timestamp = l.now()
	res.OK = err == nil
	if err != nil {
		st := status.Convert(err)
		res.ErrorCode = st.Code().String()
		res.Error = st.Message()
		res.Result = nil
	}
	if pubErr := l.results.PublishJSON(ctx, res.CommandID, res); pubErr != nil {
		l.logger.Error("Failed to publish command result",
			zap.String("command_id", res.CommandID),
			zap.Error(pubErr),
		)
	}
}
