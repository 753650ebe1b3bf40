package media_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trexinity/another/internal/catalog/domain"
	"github.com/trexinity/another/internal/catalog/media"
)

func TestArchiveURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://archive.org/details/night_of_the_living_dead", "https://archive.org/download/night_of_the_living_dead/night_of_the_living_dead.mp4"},
		{"https://archive.org/details/Plan9/extra/path", "https://archive.org/download/Plan9/Plan9.mp4"},
		{"https://archive.org/download/x/x.mp4", "https://archive.org/download/x/x.mp4"},
		{"https://archive.org/download/x/x.webm", "https://archive.org/download/x/x.webm"},
		{"https://archive.org/download/x/x.ogv", "https://archive.org/download/x/x.ogv"},
		{"https://archive.org/details/", "https://archive.org/details/"},
		{"https://archive.org/embed/foo", "https://archive.org/embed/foo"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, media.ArchiveURL(tt.in), tt.in)
	}
}

func TestDrivePreviewURL(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"https://drive.google.com/file/d/1AbC_d-9/view?usp=sharing", "https://drive.google.com/file/d/1AbC_d-9/preview", true},
		{"https://drive.google.com/open?id=XyZ_123", "https://drive.google.com/file/d/XyZ_123/preview", true},
		{"https://drive.google.com/uc?export=download&id=Q-q", "https://drive.google.com/file/d/Q-q/preview", true},
		{"https://drive.google.com/drive/folders", "", false},
	}
	for _, tt := range tests {
		got, ok := media.DrivePreviewURL(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDriveFileID_PrefersFilePath(t *testing.T) {
	id, ok := media.DriveFileID("https://drive.google.com/file/d/PATH/view?id=QUERY")
	assert.True(t, ok)
	assert.Equal(t, "PATH", id)
}

func TestPlaybackURL(t *testing.T) {
	assert.Equal(t,
		"https://archive.org/download/a/a.mp4",
		media.PlaybackURL(domain.SourceArchive, "https://archive.org/details/a"))
	assert.Equal(t,
		"https://archive.org/download/a/a.mp4",
		media.PlaybackURL("", "https://archive.org/details/a"))
	assert.Equal(t,
		"https://drive.google.com/file/d/abc/preview",
		media.PlaybackURL(domain.SourceGoogleDrive, "https://drive.google.com/file/d/abc/preview"))
	assert.Equal(t,
		"https://res.cloudinary.com/v.mp4",
		media.PlaybackURL(domain.SourceCloudinary, "https://res.cloudinary.com/v.mp4"))
}
