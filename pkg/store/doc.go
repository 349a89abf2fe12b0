// Package store implements an in-memory reactive store.
//
// A Writable holds one value and pushes it to subscribers whenever it changes.
// The semantics follow the Svelte store contract: Subscribe delivers the
// current value immediately, the start notifier runs on the first subscriber
// and its stop func on the last unsubscribe, and Set skips notification when
// the new value is comparable and equal to the old one.
package store
