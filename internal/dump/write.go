package dump

import (
	"os"
	"strings"

	"github.com/zeebo/xxh3"
)

// generatedPrefix marks the only header line that varies between runs.
const generatedPrefix = "-- Generated: "

// WriteFile joins lines with "\n" (no trailing newline) and writes them to
// path, truncating any existing file. It returns the byte count.
func WriteFile(path string, lines []string) (int, error) {
	content := strings.Join(lines, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return 0, err
	}
	return len(content), nil
}

// Digest returns the xxh3 of the dump content with the generation date left
// out, so two dumps of the same data compare equal whatever day they ran.
func Digest(lines []string) uint64 {
	h := xxh3.New()
	for _, l := range lines {
		if strings.HasPrefix(l, generatedPrefix) {
			continue
		}
		_, _ = h.WriteString(l)
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}
