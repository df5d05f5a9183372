// Package uristack converts between the flat URL path shown in the browser
// bar and the structured navigation stack the application state operates on.
//
// A path is a slash-delimited sequence of segments. The literal segment
// "search" starts a free-form search term that may itself contain slashes;
// the term runs until the next reserved list-argument keyword. A path may
// contain several search groups, each re-joined into a single stack entry.
package uristack

import "strings"

// ListArgs are the reserved list-argument keywords. They delimit free-form
// search terms within a path and are recognized query parameters on list
// requests.
var ListArgs = []string{"rpp", "page", "includes", "order", "log", "children", "search"}

// IsListArg reports whether seg is one of the reserved list-argument keywords.
func IsListArg(seg string) bool {
	for _, a := range ListArgs {
		if seg == a {
			return true
		}
	}
	return false
}

// Decode converts a path into a navigation stack. An empty path yields an
// empty stack. Decode never fails; malformed input degrades to a partial
// stack.
func Decode(path string) []string {
	if path == "" {
		return nil
	}
	return popSearchKeys(strings.Split(path, "/"))
}

// popSearchKeys re-joins the segments following each "search" marker into a
// single search-term entry, stopping at the next reserved keyword. Recurses
// so that multiple search groups are all collapsed.
func popSearchKeys(stack []string) []string {
	if len(stack) == 0 {
		return stack
	}
	searchIndex := -1
	for i, seg := range stack {
		if seg == "search" {
			searchIndex = i
			break
		}
	}
	if searchIndex < 0 {
		return stack
	}

	out := make([]string, 0, len(stack))
	out = append(out, stack[:searchIndex+1]...)

	rest := stack[searchIndex+1:]
	var term []string
	for len(rest) > 0 {
		if IsListArg(rest[0]) {
			break
		}
		term = append(term, rest[0])
		rest = rest[1:]
	}
	// "search" as the last segment yields an empty term.
	out = append(out, strings.Join(term, "/"))
	return append(out, popSearchKeys(rest)...)
}

// Encode converts a navigation stack back into a path. Search terms keep
// their embedded slashes, so Decode(Encode(stack)) re-joins them the same
// way; the round trip is idempotent.
func Encode(stack []string) string {
	return strings.Join(stack, "/")
}
