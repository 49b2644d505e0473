package tree

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	scanerrors "github.com/matzehuels/treescan/pkg/errors"
)

// maxLineBytes bounds a single input line. Wide DAG nodes can list many parents.
const maxLineBytes = 4 << 20

// Parse reads tree records from r. Each non-blank, non-comment line holds
//
//	ID internalCases internalMeasure parentCount parentID...
//
// Parse stops at the first malformed line and returns an INPUT_PARSE error
// carrying its 1-based line number. It does not resolve parent references;
// use [Build] or [Read] for that.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record
	err := scanLines(r, func(line int, fields []string) error {
		rec, err := parseRecord(line, fields)
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func parseRecord(line int, fields []string) (Record, error) {
	if len(fields) < 4 {
		return Record{}, scanerrors.Parse(line, nil, "expected at least 4 fields (ID cases measure parentCount), got %d", len(fields))
	}
	id := fields[0]
	if err := scanerrors.ValidateNodeID(id); err != nil {
		return Record{}, scanerrors.Parse(line, err, "invalid node ID")
	}

	cases, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, scanerrors.Parse(line, err, "invalid case count %q", fields[1]).WithNode(id)
	}
	if err := scanerrors.ValidateCount("case count", cases); err != nil {
		return Record{}, scanerrors.Parse(line, err, "invalid case count %q", fields[1]).WithNode(id)
	}

	measure, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Record{}, scanerrors.Parse(line, err, "invalid measure %q", fields[2]).WithNode(id)
	}
	if err := scanerrors.ValidateMeasure("measure", measure); err != nil {
		return Record{}, scanerrors.Parse(line, err, "invalid measure %q", fields[2]).WithNode(id)
	}

	count, err := strconv.Atoi(fields[3])
	if err != nil || count < 0 {
		return Record{}, scanerrors.Parse(line, err, "invalid parent count %q", fields[3]).WithNode(id)
	}
	if got := len(fields) - 4; got != count {
		return Record{}, scanerrors.Parse(line, nil, "parent count is %d but %d parent IDs follow", count, got).WithNode(id)
	}

	var parents []string
	if count > 0 {
		parents = append(parents, fields[4:]...)
	}
	return Record{ID: id, Cases: cases, Measure: measure, Parents: parents, Line: line}, nil
}

// Read parses r and builds the tree.
func Read(r io.Reader) (*Tree, error) {
	records, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return Build(records)
}

// ReadBytes parses data and builds the tree.
func ReadBytes(data []byte) (*Tree, error) {
	return Read(bytes.NewReader(data))
}

// ReadFile reads a tree description from path.
func ReadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, scanerrors.Wrap(scanerrors.ErrCodeFileNotFound, err, "tree file %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// ParseDuplicates reads known duplicate counts, one "ID count" pair per line.
// Repeated IDs accumulate.
func ParseDuplicates(r io.Reader) (map[string]int, error) {
	dups := make(map[string]int)
	err := scanLines(r, func(line int, fields []string) error {
		if len(fields) != 2 {
			return scanerrors.Parse(line, nil, "expected 2 fields (ID count), got %d", len(fields))
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 {
			return scanerrors.Parse(line, err, "invalid duplicate count %q", fields[1]).WithNode(fields[0])
		}
		dups[fields[0]] += n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dups, nil
}

// scanLines calls fn with the fields of every non-blank, non-comment line.
func scanLines(r io.Reader, fn func(line int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := fn(line, strings.Fields(text)); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return scanerrors.Parse(line+1, err, "read input")
	}
	return nil
}
