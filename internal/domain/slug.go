package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9 ]`)
var slugSpaces = regexp.MustCompile(` +`)

// GenerateSlug derives the movie's unique, human-readable secondary key
// from its title and release year. The derivation is deterministic: the
// same title and year always produce the same slug.
func GenerateSlug(title string, yearOfRelease int) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugInvalidChars.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	return fmt.Sprintf("%s-%d", slug, yearOfRelease)
}
