package feed

import (
	"regexp"
	"strings"

	"github.com/driftline/driftline-backend/internal/apperr"
)

// queryPattern is the allow-list for raw search queries: alphanumerics,
// space and -_'$#@, between 1 and 100 characters.
var queryPattern = regexp.MustCompile(`^[a-zA-Z0-9 \-_'$#@]{1,100}$`)

var alphanumeric = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// SearchTerms is the classified breakdown of a raw search query.
type SearchTerms struct {
	Usernames      []string // @-prefixed segments, prefix stripped
	Hashtags       []string // #-prefixed segments, prefix stripped
	StringSegments []string // plain alphanumeric segments
}

// ContentTerms returns the terms matched against post content: plain
// segments plus hashtags with their prefix restored.
func (t *SearchTerms) ContentTerms() []string {
	terms := make([]string, 0, len(t.StringSegments)+len(t.Hashtags))
	terms = append(terms, t.StringSegments...)
	for _, tag := range t.Hashtags {
		terms = append(terms, "#"+tag)
	}
	return terms
}

// ExtractSearchTerms validates a raw query and splits it into
// usernames, hashtags and plain segments. Disallowed characters and
// empty input are validation errors, never a silent empty result.
func ExtractSearchTerms(raw string) (*SearchTerms, error) {
	if !queryPattern.MatchString(raw) {
		return nil, apperr.Validation("q", "search query must be 1-100 characters from a-z, 0-9, space or -_'$#@")
	}

	terms := &SearchTerms{}
	for _, segment := range strings.Fields(raw) {
		switch {
		case strings.HasPrefix(segment, "@") && len(segment) > 1:
			terms.Usernames = append(terms.Usernames, segment[1:])
		case strings.HasPrefix(segment, "#") && len(segment) > 1:
			terms.Hashtags = append(terms.Hashtags, segment[1:])
		case alphanumeric.MatchString(segment):
			terms.StringSegments = append(terms.StringSegments, segment)
		}
	}
	return terms, nil
}
