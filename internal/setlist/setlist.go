// Package setlist reads the newline-delimited list of set codes to fetch.
package setlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Read returns the set codes from the given file, one per line, in file
// order. Surrounding whitespace is trimmed and blank lines are skipped;
// beyond non-emptiness no code format is enforced.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open set code list %s: %w", path, err)
	}
	defer f.Close()

	var codes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		code := strings.TrimSpace(scanner.Text())
		if code == "" {
			continue
		}
		codes = append(codes, code)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read set code list %s: %w", path, err)
	}

	return codes, nil
}
