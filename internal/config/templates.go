package config

import (
	"fmt"
	"os"
)

// Template returns a commented starter configuration
func Template() string {
	return defaultTemplate
}

// WriteTemplate writes the starter configuration to path
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(defaultTemplate), 0o600)
}

const defaultTemplate = `# PDU description to read
input = "pdus.xml"

# generated files go to <output>/<backend dir>
output = "./generated"

# delete stale files in backend directories before writing
clean = false

workers = 4
log_level = "info"

# allow dynamic lists of primitive elements
primitive_dynamic_lists = false

[[backends]]
name = "objc"
dir = "objc"

[[backends]]
name = "python"
dir = "python"

[[backends]]
name = "go"
dir = "go"
package = "pdu"
`
