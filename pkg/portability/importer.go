package portability

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// Importer parses one external format into a request collection.
type Importer interface {
	// Import parses the raw bytes of a source file.
	Import(data []byte) (*request.Collection, error)

	// Format returns the format this importer handles.
	Format() Format
}

// ImportOptions provides configuration for the import process.
type ImportOptions struct {
	// Format skips detection when set.
	Format Format

	// Name overrides the collection name found in the source.
	Name string

	// BaseURL is prefixed to imported URLs that are relative paths, such as
	// the path keys of an OpenAPI document.
	BaseURL string
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Collection *request.Collection
	Format     Format

	RequestCount int
	FolderCount  int
}

// Import detects the format of data (unless opts names one) and imports it
// with the default registry. A collection left unnamed by the source and
// opts takes the base name of filename without its extension.
func Import(data []byte, filename string, opts *ImportOptions) (*ImportResult, error) {
	if opts == nil {
		opts = &ImportOptions{}
	}

	format := opts.Format
	if format == FormatUnknown {
		format = DetectFormat(data, filename)
	}
	if format == FormatUnknown {
		return nil, &ImportError{Message: "unable to detect format from file content"}
	}

	importer := GetImporter(format)
	if importer == nil {
		return nil, &ImportError{Format: format, Message: "no importer available for format"}
	}

	collection, err := importer.Import(data)
	if err != nil {
		return nil, err
	}

	if opts.Name != "" {
		collection.Name = opts.Name
	}
	if collection.Name == "" && filename != "" {
		base := filepath.Base(filename)
		collection.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if collection.Name == "" && format == FormatCURL {
		collection.Name = CURLCollectionName
	}
	if opts.BaseURL != "" {
		base := strings.TrimRight(opts.BaseURL, "/")
		collection.Walk(func(_ []string, s *request.Spec) {
			if strings.HasPrefix(s.URL, "/") {
				s.URL = base + s.URL
			}
		})
	}

	return &ImportResult{
		Collection:   collection,
		Format:       format,
		RequestCount: collection.Count(),
		FolderCount:  countFolders(collection.Folders),
	}, nil
}

func countFolders(fs []*request.Folder) int {
	n := len(fs)
	for _, f := range fs {
		n += countFolders(f.Folders)
	}
	return n
}

// ImportError represents an error during import.
type ImportError struct {
	Format  Format
	Line    int
	Column  int
	Message string
	Cause   error
}

func (e *ImportError) Error() string {
	msg := e.Message
	if e.Format != FormatUnknown {
		msg = string(e.Format) + ": " + msg
	}
	if e.Line > 0 {
		if e.Column > 0 {
			msg = msg + " (line " + strconv.Itoa(e.Line) + ", column " + strconv.Itoa(e.Column) + ")"
		} else {
			msg = msg + " (line " + strconv.Itoa(e.Line) + ")"
		}
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ImportError) Unwrap() error {
	return e.Cause
}

// jsonImportError wraps a JSON decoding error, locating syntax errors by
// line and column.
func jsonImportError(format Format, msg string, data []byte, err error) *ImportError {
	ie := &ImportError{Format: format, Message: msg, Cause: err}
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		ie.Line, ie.Column = position(data, syn.Offset)
	}
	return ie
}

func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	head := data[:offset]
	line = bytes.Count(head, []byte{'\n'}) + 1
	col = int(offset) - bytes.LastIndexByte(head, '\n')
	return line, col
}
