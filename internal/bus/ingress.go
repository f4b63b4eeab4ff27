package bus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// GateHandler reacts to deserialized gate events. A nil response with a nil
// error never occurs; an error means the event could not be processed and
// must be dropped without a response (the reader re-presents the tag).
type GateHandler interface {
	HandleEntry(ctx context.Context, req GateRequest) (*EntryResponse, error)
	HandleExit(ctx context.Context, req GateRequest) (*ExitResponse, error)
}

// Ingress subscribes to the gate request topics, dispatches each message to
// the handler on its own goroutine, and publishes the outcome on the paired
// response topic as the terminal step of the task.
type Ingress struct {
	sub     Subscriber
	pub     Publisher
	handler GateHandler
	logger  *zap.Logger
}

// NewIngress builds the event pipeline.
func NewIngress(sub Subscriber, pub Publisher, handler GateHandler, logger *zap.Logger) *Ingress {
	return &Ingress{
		sub:     sub,
		pub:     pub,
		handler: handler,
		logger:  logger,
	}
}

// Run consumes gate events until ctx is done.
func (i *Ingress) Run(ctx context.Context) error {
	ch, err := i.sub.Subscribe(ctx, TopicEntry, TopicExit)
	if err != nil {
		return err
	}

	i.logger.Info("gate event ingress started",
		zap.Strings("topics", []string{TopicEntry, TopicExit}),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("bus: subscription closed unexpectedly")
			}
			go i.dispatch(ctx, msg)
		}
	}
}

func (i *Ingress) dispatch(ctx context.Context, msg Message) {
	var req GateRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		i.logger.Warn("malformed gate event dropped",
			zap.String("topic", msg.Topic),
			zap.Error(err),
		)
		return
	}
	if strings.TrimSpace(req.RFID) == "" {
		i.logger.Warn("gate event without rfid dropped", zap.String("topic", msg.Topic))
		return
	}

	switch msg.Topic {
	case TopicEntry:
		resp, err := i.handler.HandleEntry(ctx, req)
		if err != nil {
			i.logger.Error("entry event dropped",
				zap.String("rfid", req.RFID),
				zap.String("device_id", req.DeviceID),
				zap.Error(err),
			)
			return
		}
		i.publish(ctx, TopicEntryResponse, resp, req)
	case TopicExit:
		resp, err := i.handler.HandleExit(ctx, req)
		if err != nil {
			i.logger.Error("exit event dropped",
				zap.String("rfid", req.RFID),
				zap.String("device_id", req.DeviceID),
				zap.Error(err),
			)
			return
		}
		i.publish(ctx, TopicExitResponse, resp, req)
	default:
		i.logger.Warn("message on unexpected topic dropped", zap.String("topic", msg.Topic))
	}
}

func (i *Ingress) publish(ctx context.Context, topic string, payload interface{}, req GateRequest) {
	if err := i.pub.Publish(ctx, topic, payload); err != nil {
		// The device owns retry; nothing more to do here.
		i.logger.Error("failed to publish gate response",
			zap.String("topic", topic),
			zap.String("rfid", req.RFID),
			zap.Error(err),
		)
	}
}
