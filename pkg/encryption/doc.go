// Package encryption adds a reversible encryption layer on top of any string
// storage.
//
// Values are sealed with an AEAD cipher (AES-GCM by default, XChaCha20-
// Poly1305 as an alternative) using a fresh random nonce that travels in
// front of the ciphertext, so decryption needs nothing but the key. Keys are
// "hashed" by sealing them with a fixed nonce: the result is stable for a
// given secret, hides the key name from whoever reads the storage, and is not
// a one-way function.
//
// # Format
//
// Every sealed string is hex(nonce || ciphertext || tag).
package encryption
