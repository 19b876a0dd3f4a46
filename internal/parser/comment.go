package parser

import "strings"

// CleanComment normalizes comment text taken from XML attributes.
// Line breaks and runs of whitespace collapse to single spaces, and
// comment markers left over from hand-edited files are removed:
//
//	"// Entity state  PDU" -> "Entity state PDU"
//	"/* Entity state */"   -> "Entity state"
func CleanComment(line string) string {
	line = strings.TrimSpace(line)

	// Remove /* */ wrapper
	if strings.HasPrefix(line, "/*") && strings.HasSuffix(line, "*/") {
		line = strings.TrimPrefix(line, "/*")
		line = strings.TrimSuffix(line, "*/")
	}

	// Remove // prefix
	line = strings.TrimPrefix(strings.TrimSpace(line), "//")

	return strings.Join(strings.Fields(line), " ")
}
