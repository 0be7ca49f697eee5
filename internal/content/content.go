// Package content provides a heuristic content characterizer that labels
// raw edit text with language-construct tags. Classification uses keyword
// pattern tables rather than parsing, mirroring how the capture layer
// tags events, so stripped-content streams and raw-content streams
// produce comparable characteristics.
package content

import "strings"

// Construct labels recognized in edit content. "unknown" is the default
// when no pattern matches.
const (
	ConstructFunction = "function"
	ConstructClass    = "class"
	ConstructVariable = "variable"
	ConstructImport   = "import"
	ConstructExport   = "export"
	ConstructUnknown  = "unknown"
)

// constructRule maps keyword patterns to a construct label. Rules are
// evaluated in order; the first match wins.
type constructRule struct {
	construct string
	keywords  []string
}

var constructRules = []constructRule{
	{ConstructImport, []string{"import ", "require(", "#include", "from \"", "use "}},
	{ConstructExport, []string{"export ", "module.exports"}},
	{ConstructClass, []string{"class ", "interface ", "trait ", "type ", "struct "}},
	{ConstructFunction, []string{"func ", "function ", "def ", "fn ", "=> {", ") => "}},
	{ConstructVariable, []string{"const ", "let ", "var ", ":= "}},
}

// ClassifyConstruct labels a fragment of edit text with the language
// construct it most likely introduces. Used by the ingestion adapter to
// backfill languageConstruct when the capture layer omitted it.
func ClassifyConstruct(text string) string {
	if text == "" {
		return ConstructUnknown
	}
	for _, rule := range constructRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.construct
			}
		}
	}
	return ConstructUnknown
}

// commentMarkers are line prefixes that indicate a comment edit.
var commentMarkers = []string{"//", "#", "/*", "*", "--", "<!--"}

// IsCommentText reports whether a fragment of edit text is a comment.
func IsCommentText(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, m := range commentMarkers {
		if strings.HasPrefix(trimmed, m) {
			return true
		}
	}
	return false
}

// LooksLikeCode reports whether a fragment of edit text reads as
// structured code: multiple lines with consistent indentation or any
// construct keyword.
func LooksLikeCode(text string) bool {
	if ClassifyConstruct(text) != ConstructUnknown {
		return true
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return false
	}
	indented := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "\t") || strings.HasPrefix(l, "  ") {
			indented++
		}
	}
	return indented*2 >= len(lines)
}

// identifierLike reports whether s reads as a bare identifier: letters,
// digits and underscores only, not starting with a digit.
func identifierLike(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// IsIdentifier reports whether a fragment of edit text is a bare
// identifier, the shape of a variable rename.
func IsIdentifier(text string) bool {
	return identifierLike(text)
}

// testKeywords mark edit content as testing-related.
var testKeywords = []string{"test", "spec", "assert"}

// MentionsTesting reports whether a fragment of edit text references
// tests, specs or assertions.
func MentionsTesting(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range testKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
