package event_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/event"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

func init() {
	logger.SetMinLoggingLevel(logger.FATAL.Level())
}

func Test_HandlerFunction_ReceivesDispatchedPayload(t *testing.T) {
	bus := event.New()

	var receivedEvent event.Event
	var receivedPayload event.Payload
	bus.RegisterHandlerFunction(event.JOB_UPDATE, func(ev event.Event, payload event.Payload) {
		receivedEvent = ev
		receivedPayload = payload
	})

	id := uuid.New()
	bus.Dispatch(event.JOB_UPDATE, id)

	assert.Equal(t, event.JOB_UPDATE, receivedEvent)
	assert.Equal(t, id, receivedPayload)
}

func Test_HandlerChannel_ReceivesSubscribedEvents(t *testing.T) {
	bus := event.New()

	handlerChan := make(event.HandlerChannel, 2)
	bus.RegisterHandlerChannel(handlerChan, event.PROVISION_COMPLETE, event.JOB_COMPLETE)

	bus.Dispatch(event.PROVISION_COMPLETE, nil)
	id := uuid.New()
	bus.Dispatch(event.JOB_COMPLETE, id)
	// JOB_UPDATE was not subscribed to and must not be delivered.
	bus.Dispatch(event.JOB_UPDATE, uuid.New())

	first := receiveEvent(t, handlerChan)
	assert.Equal(t, event.PROVISION_COMPLETE, first.Event)
	assert.Nil(t, first.Payload)

	second := receiveEvent(t, handlerChan)
	assert.Equal(t, event.JOB_COMPLETE, second.Event)
	assert.Equal(t, id, second.Payload)

	select {
	case unexpected := <-handlerChan:
		t.Fatalf("received event %v the channel was not subscribed to", unexpected.Event)
	default:
	}
}

func Test_AsyncHandlerFunction_ReceivesDispatchedPayload(t *testing.T) {
	bus := event.New()

	received := make(chan event.Payload, 1)
	bus.RegisterAsyncHandlerFunction(event.JOB_COMPLETE, func(_ event.Event, payload event.Payload) {
		received <- payload
	})

	id := uuid.New()
	bus.Dispatch(event.JOB_COMPLETE, id)

	select {
	case payload := <-received:
		assert.Equal(t, id, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("async handler was never invoked")
	}
}

func Test_Dispatch_RejectsInvalidPayloads(t *testing.T) {
	bus := event.New()

	handlerChan := make(event.HandlerChannel, 1)
	bus.RegisterHandlerChannel(handlerChan, event.JOB_UPDATE, event.PROVISION_COMPLETE)

	// JOB_UPDATE requires a uuid payload; PROVISION_COMPLETE a nil one.
	bus.Dispatch(event.JOB_UPDATE, "not-a-uuid")
	bus.Dispatch(event.PROVISION_COMPLETE, uuid.New())

	select {
	case unexpected := <-handlerChan:
		t.Fatalf("invalid payload for %v was delivered to handlers", unexpected.Event)
	default:
	}
}

func receiveEvent(t *testing.T, handlerChan event.HandlerChannel) event.HandlerEvent {
	select {
	case received := <-handlerChan:
		return received
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for event delivery")
		return event.HandlerEvent{}
	}
}
