// Package slug derives filesystem-safe names for Drive folders and archive
// files from free-form identifiers (account handles, queries, event labels).
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const timestampLayout = "20060102150405"

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*]`)
	underscoreRuns = regexp.MustCompile(`__+`)
)

// Sanitize turns a string into a valid folder or file name: characters from
// <>:"/\|?* become underscores, leading/trailing spaces and dots are
// stripped, and runs of underscores collapse to one. The result is never
// empty; unusable input yields "untitled".
func Sanitize(name string) string {
	s := invalidChars.ReplaceAllString(name, "_")
	s = strings.Trim(s, " .")
	s = underscoreRuns.ReplaceAllString(s, "_")
	if s == "" {
		return "untitled"
	}
	return s
}

// Archive builds the FIMI-style slug used for archive file names:
// FIMI_<actor>_<searchType>_<start>_<end> with second-resolution timestamps.
func Archive(actor, searchType string, start, end time.Time) string {
	return fmt.Sprintf("FIMI_%s_%s_%s_%s",
		actor, searchType,
		start.Format(timestampLayout), end.Format(timestampLayout))
}
