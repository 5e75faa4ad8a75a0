// Package models defines the wiki's documents, relationships, graphs and search results.
package models

import "time"

// Document is a wiki page: a Markdown body with a title and metadata.
type Document struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

// DocumentMetadata holds the typed metadata kept with every document.
// Path is set for documents imported from files.
type DocumentMetadata struct {
	Author    string    `json:"author"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Path      string    `json:"path,omitempty"`
}

// DocumentInput is the input for creating or updating a document. Metadata
// keys understood by the service are author, tags (list or comma separated
// string), path and created_at; absent keys keep their previous value on update.
type DocumentInput struct {
	ID       string         `json:"id,omitempty"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Relationship is a typed, directed edge between two documents.
type Relationship struct {
	SourceID         string         `json:"source_id"`
	TargetID         string         `json:"target_id"`
	RelationshipType string         `json:"relationship_type"`
	Properties       map[string]any `json:"properties"`
}

// RelatedDocument is a document reached through an outgoing relationship.
type RelatedDocument struct {
	Document         *Document      `json:"document"`
	RelationshipType string         `json:"relationship_type"`
	Properties       map[string]any `json:"properties"`
}

// DocumentGraph is the node and edge set of the graph overlay.
type DocumentGraph struct {
	Nodes         []*Document     `json:"nodes"`
	Relationships []*Relationship `json:"relationships"`
}
