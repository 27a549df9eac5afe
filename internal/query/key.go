// Package query wraps every read of the backing note store with a cache
// lookup and records one performance sample per read.
package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind classifies an operation as a pure read or a write.
type Kind string

// Operation kinds.
const (
	KindRead  Kind = "read"
	KindWrite Kind = "write"
)

// Entities used for key prefixes and invalidation.
const (
	EntityNotes = "notes"
	EntityTags  = "tags"
	EntityLinks = "links"
)

// Shape identifies an operation independently of its parameter values.
// Entity names the logical data the operation touches; writes to that entity
// invalidate every cached read keyed under it.
type Shape struct {
	Name      string
	Kind      Kind
	Entity    string
	Statement string
}

// Operation is the identifier recorded in performance samples.
func (s Shape) Operation() string {
	if s.Name != "" {
		return s.Name
	}
	return Normalize(s.Statement)
}

// Normalize lower-cases a statement and collapses runs of whitespace.
func Normalize(statement string) string {
	return strings.ToLower(strings.Join(strings.Fields(statement), " "))
}

// Key derives the cache key for a read of shape with params. The readable
// "<kind>:<entity>:" prefix makes pattern invalidation possible; the encoded
// tail is injective in (normalized statement, params).
func Key(shape Shape, params ...any) string {
	payload, err := json.Marshal(params)
	if err != nil {
		payload = []byte(fmt.Sprintf("%#v", params))
	}
	raw := Normalize(shape.Statement) + "|" + string(payload)
	return string(shape.Kind) + ":" + shape.Entity + ":" + base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Pattern returns the invalidation pattern covering all reads of entity.
func Pattern(entity string) string {
	return string(KindRead) + ":" + entity + ":*"
}
