package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted during step N are
// delivered by the DispatchAll that follows the next SwapBuffers. Event
// types are dispatched in the order they were first emitted.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	order    []reflect.Type
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	t := typeOf[T]()
	_, inBack := b.back[t]
	_, inFront := b.front[t]
	if !inBack && !inFront {
		b.order = append(b.order, t)
	}
	b.back[t] = append(b.back[t], event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers rotates back into front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers.
func (b *Bus) DispatchAll() {
	for _, t := range b.order {
		for _, ev := range b.front[t] {
			for _, h := range b.handlers[t] {
				h(ev)
			}
		}
	}
}

// Flush swaps and dispatches in one call.
func (b *Bus) Flush() {
	b.SwapBuffers()
	b.DispatchAll()
}
