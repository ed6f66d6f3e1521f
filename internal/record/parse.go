package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"workspace-provision/internal/apperr"
	"workspace-provision/internal/domain"
)

const (
	commentPrefix = "#"
	separator     = ":"
	bom           = "\ufeff"
)

// Parse reads `key: value` lines. Blank lines and lines starting with '#'
// (after trimming) are skipped, as are lines without a ':' or with an empty
// key. The value is everything after the first ':'. Later duplicates win.
func Parse(r io.Reader) (domain.UserRecord, error) {
	fields := domain.UserRecord{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	first := true
	for sc.Scan() {
		line := sc.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
			continue
		}

		key, value, ok := strings.Cut(line, separator)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("record: scan: %w", err)
	}
	return fields, nil
}

// ParseFile opens path and parses it. A path that does not exist is an
// InputNotFound error.
func ParseFile(path string) (domain.UserRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.InputNotFound("input file not found at: "+path, err)
		}
		return nil, fmt.Errorf("record: open %s: %w", path, err)
	}
	defer f.Close()

	return Parse(f)
}

// Validate reports every missing required key in one ValidationError.
func Validate(rec domain.UserRecord) error {
	missing := rec.Missing()
	if len(missing) == 0 {
		return nil
	}
	return apperr.Validation("missing required field(s): " + strings.Join(missing, ", "))
}
