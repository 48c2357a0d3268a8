package smartsheet

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidLocator = errors.New("could not extract a sheet id from the given locator")

var (
	bareIDPattern    = regexp.MustCompile(`^\d+$`)
	sheetPathPattern = regexp.MustCompile(`/sheets/([^/?#]+)`)
	queryIDPattern   = regexp.MustCompile(`EQBCT=([^&#]+)`)
	longIDPattern    = regexp.MustCompile(`\d{19}`)
	numericIDPattern = regexp.MustCompile(`\d{10,}`)
)

// ExtractSheetID resolves a sheet id from a bare id or a sheet URL. Patterns
// are tried in order: a /sheets/ path segment, the EQBCT query parameter, a
// 19 digit run and finally any run of ten or more digits.
func ExtractSheetID(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return "", ErrInvalidLocator
	}
	if bareIDPattern.MatchString(locator) {
		return locator, nil
	}

	for _, pattern := range []*regexp.Regexp{sheetPathPattern, queryIDPattern} {
		if match := pattern.FindStringSubmatch(locator); len(match) == 2 && match[1] != "" {
			return match[1], nil
		}
	}
	for _, pattern := range []*regexp.Regexp{longIDPattern, numericIDPattern} {
		if match := pattern.FindString(locator); match != "" {
			return match, nil
		}
	}
	return "", ErrInvalidLocator
}
