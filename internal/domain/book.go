package domain

import "strings"

// Book is the canonical record of a book registered in the library.
// The import pipeline deduplicates books by their display name.
type Book struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	MetadataTitle string `json:"metadata_title,omitempty"`
	Author        string `json:"author,omitempty"`
	CoverImage    string `json:"cover_image,omitempty"`
}

// DisplayName returns the name used for deduplication.
func (b Book) DisplayName() string {
	return strings.TrimSpace(b.Name)
}

// BookMetadata is what a parser extracts from a book file.
type BookMetadata struct {
	Title     string
	Author    string
	Cover     []byte
	CoverMIME string
}

// CreateBookRequest carries everything needed to register a new book.
type CreateBookRequest struct {
	FileName   string       `json:"file_name"`
	FileData   []byte       `json:"file_data"`
	BookName   string       `json:"book_name"`
	CoverImage []byte       `json:"cover_image,omitempty"`
	Metadata   BookMetaJSON `json:"book_metadata"`
}

// BookMetaJSON is the wire form of the metadata sent with a new book.
type BookMetaJSON struct {
	Title  string `json:"title,omitempty"`
	Author string `json:"creator,omitempty"`
}
