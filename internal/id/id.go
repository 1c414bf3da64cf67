// Package id generates the prefixed identifiers and opaque tokens used for persisted entities.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes.
const (
	PrefixUser = "user"
	PrefixNote = "note"
	PrefixTag  = "tag"
)

// PublicTokenLength is the length of a public note token.
// 32 symbols from the 64-character URL-safe alphabet carry 192 bits.
const PublicTokenLength = 32

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "note-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// PublicToken creates an unprefixed, URL-safe random token for public note links.
func PublicToken() (string, error) {
	token, err := gonanoid.New(PublicTokenLength)
	if err != nil {
		return "", fmt.Errorf("generate public token: %w", err)
	}
	return token, nil
}
