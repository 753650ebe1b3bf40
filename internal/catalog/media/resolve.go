// Package media resolves stored video locators into playable URLs and
// uploads studio assets.
package media

import (
	"regexp"
	"strings"

	"github.com/trexinity/another/internal/catalog/domain"
)

var driveIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`),
}

// ArchiveURL rewrites an archive.org details page into the direct MP4
// download of the same item. Direct media URLs and anything without a
// details segment are returned unchanged.
func ArchiveURL(url string) string {
	if url == "" {
		return ""
	}
	if strings.Contains(url, ".mp4") || strings.Contains(url, ".webm") || strings.Contains(url, ".ogv") {
		return url
	}
	_, after, found := strings.Cut(url, "/details/")
	if !found {
		return url
	}
	identifier, _, _ := strings.Cut(after, "/")
	if identifier == "" {
		return url
	}
	return "https://archive.org/download/" + identifier + "/" + identifier + ".mp4"
}

// DriveFileID extracts a Google Drive file id, trying the /file/d/ form
// before the id= query form.
func DriveFileID(url string) (string, bool) {
	for _, re := range driveIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil && m[1] != "" {
			return m[1], true
		}
	}
	return "", false
}

// DrivePreviewURL returns the embeddable preview URL for a Drive link.
func DrivePreviewURL(url string) (string, bool) {
	id, ok := DriveFileID(url)
	if !ok {
		return "", false
	}
	return "https://drive.google.com/file/d/" + id + "/preview", true
}

// IsArchiveURL reports whether url points at archive.org.
func IsArchiveURL(url string) bool {
	return strings.Contains(url, "archive.org")
}

// PlaybackURL resolves the locator of a title into the URL a player loads.
func PlaybackURL(source domain.VideoSource, url string) string {
	switch {
	case source == domain.SourceArchive || IsArchiveURL(url):
		return ArchiveURL(url)
	case source == domain.SourceGoogleDrive:
		if preview, ok := DrivePreviewURL(url); ok {
			return preview
		}
		return url
	default:
		return url
	}
}
