package model

// Term is a named, slugged classifier. Categories and genres share the shape
// and live in separate tables.
type Term struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type (
	Category = Term
	Genre    = Term
)

// Title is a catalogued work.
//
// Category is nil when the title has none (or its category was deleted).
// Rating is nil until the first review is posted.
type Title struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Rating      *float64  `json:"rating"`
	Description *string   `json:"description"`
	Genres      []Genre   `json:"genre"`
	Category    *Category `json:"category"`
}
