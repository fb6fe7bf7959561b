package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmateus/lexflash/internal/events"
)

func TestBus_MultipleListeners(t *testing.T) {
	bus := events.NewBus()

	var a, b int
	bus.Subscribe("ping", func(events.Event) { a++ })
	bus.Subscribe("ping", func(events.Event) { b++ })

	bus.Emit("ping", nil)
	bus.Emit("ping", nil)

	assert.Equal(t, 2, a)
	assert.Equal(t, 2, b)
}

func TestBus_PanicIsolation(t *testing.T) {
	bus := events.NewBus()

	var survived bool
	bus.Subscribe("ping", func(events.Event) { panic("boom") })
	bus.Subscribe("ping", func(events.Event) { survived = true })

	assert.NotPanics(t, func() { bus.Emit("ping", nil) })
	assert.True(t, survived, "a panicking listener must not block others")
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := events.NewBus()

	var calls int
	cancel := bus.Subscribe("ping", func(events.Event) { calls++ })

	bus.Emit("ping", nil)
	cancel()
	bus.Emit("ping", nil)

	assert.Equal(t, 1, calls)
}

func TestBus_PayloadDelivered(t *testing.T) {
	bus := events.NewBus()

	var got any
	bus.Subscribe("ping", func(e events.Event) { got = e.Payload })
	bus.Emit("ping", 42)

	assert.Equal(t, 42, got)
}
