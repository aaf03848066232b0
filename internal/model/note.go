package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// searchSeparator joins the folded fields of a note; search terms never
// contain it, so a match cannot span two fields.
const searchSeparator = "\x1f"

// Note is a piece of shared text addressed by a client supplied identifier.
type Note struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Identifier string    `json:"identifier" gorm:"size:255;not null;uniqueIndex"`
	Note       string    `json:"note" gorm:"type:text;not null"`
	Author     string    `json:"author" gorm:"size:255;not null"`
	SearchText string    `json:"-" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BeforeCreate fills the folded search document.
func (n *Note) BeforeCreate(tx *gorm.DB) error {
	n.SearchText = SearchDocument(n.Identifier, n.Author, n.Note)
	return nil
}

// FoldSearch applies Unicode case folding so comparisons ignore case in
// every script, not only ASCII.
func FoldSearch(s string) string {
	return cases.Fold().String(s)
}

// SearchTerm folds a user supplied search string for matching against
// SearchText.
func SearchTerm(s string) string {
	return FoldSearch(strings.ReplaceAll(strings.TrimSpace(s), searchSeparator, ""))
}

// SearchDocument is the folded text searches match against.
func SearchDocument(identifier, author, text string) string {
	return strings.Join([]string{FoldSearch(identifier), FoldSearch(author), FoldSearch(text)}, searchSeparator)
}

// NotePage is one page of a filtered note listing.
type NotePage struct {
	Items      []Note `json:"items"`
	TotalCount int64  `json:"total_count"`
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	TotalPages int    `json:"total_pages"`
	HasNext    bool   `json:"has_next"`
	HasPrev    bool   `json:"has_prev"`
}
