package domain

// Encryption transforms storage keys and values.
//
// Decrypt must reverse Encrypt. Hash must be deterministic for a given input
// and secret; it is not required to be one-way.
type Encryption interface {
	Hash(data string) (string, error)
	Encrypt(data string) (string, error)
	Decrypt(data string) (string, error)
}
