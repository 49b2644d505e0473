package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	scanerrors "github.com/matzehuels/treescan/pkg/errors"
)

// WriteJSON encodes doc as indented JSON. The output can be read back with
// [ReadJSON].
func WriteJSON(doc *Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes a document written by [WriteJSON].
//
// It rejects documents without a model or whose cut and node lists are
// missing, which is what a JSON file from some other tool usually looks like.
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, scanerrors.Wrap(scanerrors.ErrCodeInputParse, err, "decode result")
	}
	if doc.Model == "" || doc.Cuts == nil || doc.NodeSummary == nil {
		return nil, scanerrors.New(scanerrors.ErrCodeInvalidInput, "not a treescan result document")
	}
	return &doc, nil
}

// ReadJSONFile reads a document from path.
func ReadJSONFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, scanerrors.Wrap(scanerrors.ErrCodeFileNotFound, err, "result file %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
