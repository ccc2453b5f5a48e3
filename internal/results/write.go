package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"

	"tallyreport/internal/domain"
)

// Four-space indentation and sorted keys. Width 0 keeps every array element
// on its own line.
var prettyOptions = &pretty.Options{Width: 0, Prefix: "", Indent: "    ", SortKeys: true}

// EncodeResults renders a results document the way result files are
// written: indented by four spaces, keys sorted, non-ASCII and HTML
// characters kept literal, no trailing newline.
func EncodeResults(doc *domain.ResultsDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	out := pretty.PrettyOptions(buf.Bytes(), prettyOptions)
	return bytes.TrimRight(out, "\n"), nil
}

// WriteResults writes each record's results to the path at the same
// position. Writing stops at the first failure; files already written are
// left in place.
func WriteResults(records []*ElectionRecord, paths []string) error {
	if len(paths) != len(records) {
		return fmt.Errorf("got %d output paths for %d records", len(paths), len(records))
	}
	for i, rec := range records {
		if rec.Results == nil {
			return fmt.Errorf("record %d (%s): %w", i, rec.Name,
				&domain.SchemaError{Question: -1, Field: "results", Reason: "record has not been tallied"})
		}
		data, err := EncodeResults(rec.Results)
		if err != nil {
			return fmt.Errorf("record %d (%s): encoding results: %w", i, rec.Name, err)
		}
		if err := writeFile(paths[i], data); err != nil {
			return fmt.Errorf("record %d (%s): %w", i, rec.Name, err)
		}
		log.Printf("results written record=%s path=%s size=%s", rec.Name, paths[i], humanize.Bytes(uint64(len(data))))
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &domain.IOError{Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &domain.IOError{Path: path, Err: err}
	}
	return nil
}

// ReadResults loads a results file written by WriteResults.
func ReadResults(path string) (*domain.ResultsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &domain.NotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := domain.DecodeResults(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
