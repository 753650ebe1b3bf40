package domain

import (
	"slices"
	"strings"
	"time"
)

// TitleType distinguishes single features from episodic series.
type TitleType string

const (
	TypeMovie  TitleType = "movie"
	TypeSeries TitleType = "series"
)

// VideoSource names the host a title's video locator points at.
type VideoSource string

const (
	SourceArchive     VideoSource = "archive"
	SourceGoogleDrive VideoSource = "googledrive"
	SourceCloudinary  VideoSource = "cloudinary"
)

// Valid reports whether s is a known source.
func (s VideoSource) Valid() bool {
	switch s {
	case SourceArchive, SourceGoogleDrive, SourceCloudinary:
		return true
	}
	return false
}

// Episode is one entry of a series.
type Episode struct {
	Season      int    `json:"season"`
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Duration    *int   `json:"duration,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
}

// Title is a catalog entry as stored under movies/{id}.
//
// Optional numeric metadata is a pointer so that "absent" and zero stay
// distinct. ID is the store key and is not part of the stored record.
type Title struct {
	ID              string          `json:"id,omitempty"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Genre           string          `json:"genre,omitempty"`
	Language        string          `json:"language,omitempty"`
	Year            *int            `json:"year,omitempty"`
	Rating          *float64        `json:"rating,omitempty"`
	Duration        *int            `json:"duration,omitempty"`
	Director        string          `json:"director,omitempty"`
	Cast            string          `json:"cast,omitempty"`
	Type            TitleType       `json:"type"`
	ThumbnailURL    string          `json:"thumbnailUrl"`
	VideoURL        string          `json:"videoUrl,omitempty"`
	VideoSource     VideoSource     `json:"videoSource,omitempty"`
	Views           int64           `json:"views"`
	Likes           int64           `json:"likes"`
	LikesBy         map[string]bool `json:"likesBy,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	Episodes        []Episode       `json:"episodes,omitempty"`
	UploadedBy      string          `json:"uploadedBy,omitempty"`
	UploadedByEmail string          `json:"uploadedByEmail,omitempty"`
}

// DurationSeconds returns the duration, or 0 when absent.
func (t Title) DurationSeconds() int {
	if t.Duration == nil {
		return 0
	}
	return *t.Duration
}

// LikedBy reports whether uid currently likes the title.
func (t Title) LikedBy(uid string) bool {
	return t.LikesBy[uid]
}

// Clone returns a deep copy so callers can modify it without touching a
// shared catalog snapshot.
func (t Title) Clone() Title {
	c := t
	if t.LikesBy != nil {
		c.LikesBy = make(map[string]bool, len(t.LikesBy))
		for k, v := range t.LikesBy {
			c.LikesBy[k] = v
		}
	}
	c.Episodes = slices.Clone(t.Episodes)
	return c
}

// Matches reports whether the lower-cased query occurs in any searchable
// field. The caller lower-cases the query once.
func (t Title) Matches(lowerQuery string) bool {
	for _, field := range [...]string{t.Title, t.Description, t.Genre, t.Cast, t.Director} {
		if strings.Contains(strings.ToLower(field), lowerQuery) {
			return true
		}
	}
	return false
}

// Record returns the title as written to the store: without its id.
func (t Title) Record() Title {
	r := t.Clone()
	r.ID = ""
	return r
}
