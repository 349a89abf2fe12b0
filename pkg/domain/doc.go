// Package domain defines the contracts shared across persistentstore.
// It contains interfaces and plain types only: storage backends, reactive
// stores and the encryption triple.
package domain
