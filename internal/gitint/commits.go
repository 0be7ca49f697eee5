package gitint

import (
	"regexp"
	"strings"
)

// DetectCoAuthor parses a commit message for Co-Authored-By trailer lines.
// The match is case-insensitive per git convention.
// Returns whether a tag was found and the first coauthor name.
//
// Recognized formats:
//
//	Co-Authored-By: Name <email>
//	Co-authored-by: Name <email>
//	co-authored-by: Name <email>
func DetectCoAuthor(message string) (bool, string) {
	matches := coAuthorRe.FindAllStringSubmatch(message, -1)
	if len(matches) == 0 {
		return false, ""
	}
	// Return the first coauthor name (trimmed).
	name := strings.TrimSpace(matches[0][1])
	return true, name
}

// AllCoAuthors returns all coauthor names found in the message.
func AllCoAuthors(message string) []string {
	matches := coAuthorRe.FindAllStringSubmatch(message, -1)
	var names []string
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// coAuthorRe matches "Co-Authored-By: Name <email>" (case insensitive, multi-line).
var coAuthorRe = regexp.MustCompile(`(?im)co-authored-by:\s*(.+?)(?:\s*<[^>]*>)?\s*$`)
