// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet is a saved excerpt of a chat conversation: a title plus an ordered
// list of messages.
//
// The `json:"..."` tags tell encoding/json how to serialize the struct. The
// omitempty on Messages keeps list responses small: only snippet.getById
// loads the messages, list endpoints leave the slice nil.
type Snippet struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Tags      []Tag     `json:"tags"`
	Messages  []Message `json:"messages,omitempty"`
}

// SnippetTag is the join row between a snippet and a tag.
// (SnippetID, TagID) is the primary key, so a tag is attached at most once.
type SnippetTag struct {
	SnippetID string    `json:"snippetId"`
	TagID     string    `json:"tagId"`
	CreatedAt time.Time `json:"createdAt"`
}
