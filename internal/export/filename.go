package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// OutputFilename builds the timestamped CSV filename for a finished search.
//
// The base name drops everything up to the first underscore (clients upload
// files like "resume_jane.pdf") and the extension. The desired position, when
// present, is appended lowercased with spaces as underscores.
func OutputFilename(base, position string, now time.Time) string {
	name := base
	if _, rest, found := strings.Cut(base, "_"); found {
		name = rest
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))

	suffix := ""
	if position != "" {
		suffix = "_" + strings.ToLower(strings.ReplaceAll(position, " ", "_"))
	}

	return fmt.Sprintf("jobs_%s%s_%s.csv", name, suffix, now.Format("20060102_150405"))
}
