package domain

// Subscriber is called with the current value of a store.
type Subscriber[T any] func(value T)

// Updater computes a new store value from the current one.
type Updater[T any] func(value T) T

// StartStopNotifier runs when a store gets its first subscriber. The returned
// func, if not nil, runs when the last subscriber leaves.
type StartStopNotifier[T any] func(set func(T), update func(Updater[T])) (stop func())

// Readable is a store that pushes its value to subscribers. Subscribe calls
// run immediately with the current value.
type Readable[T any] interface {
	Subscribe(run Subscriber[T]) (unsubscribe func())
}

// Writable is a Readable that can be mutated.
type Writable[T any] interface {
	Readable[T]
	Set(value T)
	Update(fn Updater[T])
}
