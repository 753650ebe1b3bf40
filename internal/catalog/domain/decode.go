package domain

import (
	"bytes"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/trexinity/another/pkg/errors"
)

// rawTitle mirrors a movies/{id} record as legacy writers left it: numbers
// may arrive as strings, episodes as an array or an index-keyed object, and
// likesBy as a map of arbitrary values.
type rawTitle struct {
	Title           string                     `json:"title"`
	Description     string                     `json:"description"`
	Genre           string                     `json:"genre"`
	Language        string                     `json:"language"`
	Year            flexNumber                 `json:"year"`
	Rating          flexNumber                 `json:"rating"`
	Duration        flexNumber                 `json:"duration"`
	Director        string                     `json:"director"`
	Cast            flexText                   `json:"cast"`
	Type            string                     `json:"type"`
	ThumbnailURL    string                     `json:"thumbnailUrl"`
	VideoURL        string                     `json:"videoUrl"`
	VideoSource     string                     `json:"videoSource"`
	Views           flexNumber                 `json:"views"`
	Likes           flexNumber                 `json:"likes"`
	LikesBy         map[string]json.RawMessage `json:"likesBy"`
	CreatedAt       flexTime                   `json:"createdAt"`
	Episodes        flexEpisodes               `json:"episodes"`
	UploadedBy      string                     `json:"uploadedBy"`
	UploadedByEmail string                     `json:"uploadedByEmail"`
}

// DecodeTitle validates a raw movies/{id} record and converts it into a
// Title. Invalid records yield a validation error naming the field.
func DecodeTitle(id string, raw []byte) (Title, error) {
	var r rawTitle
	if err := json.Unmarshal(raw, &r); err != nil {
		return Title{}, errors.Validation("record", "malformed document: "+err.Error())
	}

	t := Title{
		ID:              id,
		Title:           strings.TrimSpace(r.Title),
		Description:     r.Description,
		Genre:           strings.TrimSpace(r.Genre),
		Language:        strings.TrimSpace(r.Language),
		Year:            r.Year.intPtr(),
		Rating:          r.Rating.ptr(),
		Duration:        r.Duration.intPtr(),
		Director:        r.Director,
		Cast:            string(r.Cast),
		Type:            TitleType(r.Type),
		ThumbnailURL:    strings.TrimSpace(r.ThumbnailURL),
		VideoURL:        strings.TrimSpace(r.VideoURL),
		VideoSource:     VideoSource(r.VideoSource),
		Views:           r.Views.count(),
		Likes:           r.Likes.count(),
		CreatedAt:       time.Time(r.CreatedAt),
		Episodes:        []Episode(r.Episodes),
		UploadedBy:      r.UploadedBy,
		UploadedByEmail: r.UploadedByEmail,
	}

	t.LikesBy = LikesBySet(r.LikesBy)

	if t.Type == "" {
		t.Type = TypeMovie
	}
	if err := t.Validate(); err != nil {
		return Title{}, err
	}
	return t, nil
}

// LikesBySet keeps the uids whose value is literally true. It returns nil
// for an empty input.
func LikesBySet(raw map[string]json.RawMessage) map[string]bool {
	if len(raw) == 0 {
		return nil
	}
	set := make(map[string]bool, len(raw))
	for uid, v := range raw {
		if bytes.Equal(bytes.TrimSpace(v), []byte("true")) {
			set[uid] = true
		}
	}
	return set
}

// ParseCount reads a stored counter. Numeric strings are accepted; absent,
// malformed and negative values read as 0.
func ParseCount(raw []byte) int64 {
	var f flexNumber
	if len(raw) > 0 {
		_ = f.UnmarshalJSON(raw)
	}
	return f.count()
}

// Validate checks the invariants every catalog entry must satisfy.
func (t Title) Validate() error {
	switch {
	case t.ID == "":
		return errors.Validation("id", "is required")
	case t.Title == "":
		return errors.Validation("title", "is required")
	case t.ThumbnailURL == "":
		return errors.Validation("thumbnailUrl", "is required")
	case t.Type != TypeMovie && t.Type != TypeSeries:
		return errors.Validation("type", "must be movie or series")
	case t.VideoSource != "" && !t.VideoSource.Valid():
		return errors.Validation("videoSource", "unknown source "+strconv.Quote(string(t.VideoSource)))
	case t.Views < 0 || t.Likes < 0:
		return errors.Validation("counters", "must not be negative")
	}
	return nil
}

// flexNumber accepts a JSON number, a numeric string, null, or "".
type flexNumber struct {
	v     float64
	valid bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
		if s == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		// Free text such as "PG-13" in a numeric slot is treated as absent.
		return nil
	}
	f.v, f.valid = v, true
	return nil
}

func (f flexNumber) ptr() *float64 {
	if !f.valid {
		return nil
	}
	v := f.v
	return &v
}

func (f flexNumber) intPtr() *int {
	if !f.valid {
		return nil
	}
	var v int
	switch {
	case f.v >= math.MaxInt:
		v = math.MaxInt
	case f.v <= math.MinInt:
		v = math.MinInt
	default:
		v = int(f.v)
	}
	return &v
}

// count returns a non-negative counter value.
func (f flexNumber) count() int64 {
	if !f.valid || f.v < 0 {
		return 0
	}
	// float64(MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f.v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f.v)
}

// flexText accepts a string or an array of strings, joined with ", ".
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*f = flexText(strings.Join(list, ", "))
	}
	return nil
}

// flexTime accepts RFC 3339 strings, date-only strings, and unix
// milliseconds.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				*f = flexTime(t.UTC())
				return nil
			}
		}
		return nil
	}
	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil && ms > 0 {
		*f = flexTime(time.UnixMilli(int64(ms)).UTC())
	}
	return nil
}

// flexEpisodes accepts an array or an object keyed by index.
type flexEpisodes []Episode

func (f *flexEpisodes) UnmarshalJSON(b []byte) error {
	var list []Episode
	if err := json.Unmarshal(b, &list); err == nil {
		*f = list
		return nil
	}
	var keyed map[string]Episode
	if err := json.Unmarshal(b, &keyed); err != nil {
		return nil
	}
	out := make([]Episode, 0, len(keyed))
	for _, ep := range keyed {
		out = append(out, ep)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Number < out[j].Number
	})
	*f = out
	return nil
}
