package content

import "strings"

// Content characteristic tags surfaced in attribution evidence.
const (
	TagCodeBlocks = "contains-code-blocks"
	TagComments   = "contains-comments"
	TagFunctions  = "contains-functions"
	TagClasses    = "contains-classes"
)

// Characteristics accumulates content observations over an event stream
// and reports the characteristic tags found. Observations come from two
// sources: the flags the capture layer attached to each event, and raw
// content when it survived sanitization.
type Characteristics struct {
	codeBlocks bool
	comments   bool
	functions  bool
	classes    bool
}

// NewCharacteristics returns an empty accumulator.
func NewCharacteristics() *Characteristics {
	return &Characteristics{}
}

// ObserveEvent records the capture layer's flags for one event.
func (c *Characteristics) ObserveEvent(isCodeBlock, isComment bool, languageConstruct string) {
	if isCodeBlock {
		c.codeBlocks = true
	}
	if isComment {
		c.comments = true
	}
	switch languageConstruct {
	case ConstructFunction:
		c.functions = true
	case ConstructClass:
		c.classes = true
	}
}

// ObserveText scans raw edit content for characteristics the capture
// layer may not have flagged.
func (c *Characteristics) ObserveText(text string) {
	if text == "" {
		return
	}
	if LooksLikeCode(text) {
		c.codeBlocks = true
	}
	if IsCommentText(text) {
		c.comments = true
	}
	switch ClassifyConstruct(text) {
	case ConstructFunction:
		c.functions = true
	case ConstructClass:
		c.classes = true
	}
	// Multi-line content can hold several constructs; check line by line
	// so a class body with methods reports both tags.
	if strings.Contains(text, "\n") {
		for _, line := range strings.Split(text, "\n") {
			switch ClassifyConstruct(line) {
			case ConstructFunction:
				c.functions = true
			case ConstructClass:
				c.classes = true
			}
		}
	}
}

// Tags returns the accumulated characteristic tags in a fixed order.
func (c *Characteristics) Tags() []string {
	var tags []string
	if c.codeBlocks {
		tags = append(tags, TagCodeBlocks)
	}
	if c.comments {
		tags = append(tags, TagComments)
	}
	if c.functions {
		tags = append(tags, TagFunctions)
	}
	if c.classes {
		tags = append(tags, TagClasses)
	}
	return tags
}
