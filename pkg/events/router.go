package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventRouter fans events out to delivery handlers over an in-process
// watermill pub/sub. Engines publish through a PublisherSink; handlers
// subscribe per topic (one topic per in-flight request).
type EventRouter struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
}

type EventRouterOption func(*EventRouter)

func WithWatermillLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) { r.logger = logger }
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{
		logger: watermill.NopLogger{},
	}
	for _, o := range options {
		o(ret)
	}

	pubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, ret.logger)
	ret.Publisher = pubSub
	ret.Subscriber = pubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}
	ret.router = router

	return ret, nil
}

// AddHandler registers a no-publish handler for the given topic.
func (e *EventRouter) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	e.router.AddNoPublisherHandler(name, topic, e.Subscriber, f)
}

// Running closes when the router has started and handlers are live.
func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

func (e *EventRouter) Close() error {
	if err := e.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("events: failed to close publisher")
	}
	return e.router.Close()
}

// PublisherSink is an EventSink that forwards events to a router topic.
type PublisherSink struct {
	publisher message.Publisher
	topic     string
}

func NewPublisherSink(publisher message.Publisher, topic string) *PublisherSink {
	return &PublisherSink{publisher: publisher, topic: topic}
}

var _ EventSink = (*PublisherSink)(nil)

func (s *PublisherSink) PublishEvent(e Event) error {
	payload, err := MarshalEvent(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return s.publisher.Publish(s.topic, msg)
}

// DecodeEvent parses a routed message payload back into a typed event.
func DecodeEvent(payload []byte) (Event, error) {
	var probe struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, errors.Wrap(err, "decode event envelope")
	}

	var e Event
	switch probe.Type {
	case EventTypeStart:
		e = &EventStart{}
	case EventTypePartialCompletion:
		e = &EventPartialCompletion{}
	case EventTypeFinal:
		e = &EventFinal{}
	case EventTypeToolCall:
		e = &EventToolCall{}
	case EventTypeToolResult:
		e = &EventToolResult{}
	case EventTypeError:
		e = &EventError{}
	default:
		return nil, errors.Errorf("unknown event type %q", probe.Type)
	}
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, errors.Wrapf(err, "decode %s event", probe.Type)
	}
	return e, nil
}
