// Package models defines the domain types shared by the index, the search
// engine and the protocol layers.
package models

import (
	"time"
	"unicode/utf8"
)

// NoteRecord is a note as read from the backing store. It is treated as
// immutable input by the search engine.
type NoteRecord struct {
	ID        string    `json:"id,omitempty"`
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Tags      []string  `json:"tags"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContentLength returns the body length in characters.
func (n NoteRecord) ContentLength() int {
	return utf8.RuneCountInString(n.Body)
}

// NoteMetadata is a lightweight representation returned by vault listings.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagCount is a tag name with the number of notes carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Link represents a directed edge between two notes.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
