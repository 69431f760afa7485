package event

import (
	"reflect"
)

// Bus is a typed synchronous event bus. Publish delivers to every subscriber
// of the event's type before returning, in registration order, on the
// publishing goroutine. Registry lifecycle events fire at the exact point of
// the state change, so subscribers observe the registry mid-transition and
// must not mutate it re-entrantly.
type Bus struct {
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]any),
	}
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// Publish delivers the event to all subscribers of T, in registration order.
func Publish[T any](b *Bus, ev T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for _, h := range b.handlers[t] {
		h.(func(T))(ev)
	}
}
