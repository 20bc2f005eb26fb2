package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	slugStripRE  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpacesRE = regexp.MustCompile(`\s+`)

	titleCaser = cases.Title(language.English)
)

// Slugify lowercases s, drops everything outside letters, digits, spaces and
// hyphens, collapses runs of whitespace into single hyphens and truncates to
// max bytes.
func Slugify(s string, max int) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugStripRE.ReplaceAllString(s, "")
	s = slugSpacesRE.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > max {
		s = s[:max]
	}
	return s
}

// EventAppID derives the deployment ID for a social build event:
// <username>-<request slug>-<event id suffix>. The suffix keeps IDs unique
// when a user repeats a request.
func EventAppID(username, request, eventID string) string {
	suffix := eventID
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return strings.ToLower(username) + "-" + Slugify(request, 25) + "-" + suffix
}

// WebAppID derives the deployment ID for a web-form build:
// web-<request slug>-<base36 timestamp>.
func WebAppID(request string, now time.Time) string {
	return "web-" + Slugify(request, 30) + "-" + strconv.FormatInt(now.UnixMilli(), 36)
}

// DisplayName renders a showcase title from the raw request: title-cased and
// truncated past 50 characters.
func DisplayName(request string) string {
	name := titleCaser.String(strings.TrimSpace(request))
	if len(name) > 50 {
		name = name[:47] + "..."
	}
	return name
}
