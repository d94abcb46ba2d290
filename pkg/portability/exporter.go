package portability

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// Exporter renders a request collection in one external format.
type Exporter interface {
	Export(c *request.Collection, opts ExportOptions) ([]byte, error)

	// Format returns the format this exporter produces.
	Format() Format
}

// ExportOptions provides configuration for the export process.
type ExportOptions struct {
	// Format is the output format (defaults to FormatNative).
	Format Format

	// Encoding selects JSON or YAML for formats that offer both. The zero
	// value uses the format's default: YAML for native collections, JSON
	// for OpenAPI.
	Encoding Encoding
}

// Encoding is a structured-document encoding.
type Encoding string

// Encodings.
const (
	EncodingDefault Encoding = ""
	EncodingJSON    Encoding = "json"
	EncodingYAML    Encoding = "yaml"
)

// ParseEncoding parses "json", "yaml" or "yml"; anything else is the
// default encoding.
func ParseEncoding(s string) Encoding {
	switch s {
	case "json":
		return EncodingJSON
	case "yaml", "yml":
		return EncodingYAML
	default:
		return EncodingDefault
	}
}

// ExportResult contains the result of an export operation.
type ExportResult struct {
	Data         []byte
	Format       Format
	RequestCount int
}

// Export renders collection with the default registry.
func Export(collection *request.Collection, opts *ExportOptions) (*ExportResult, error) {
	if opts == nil {
		opts = &ExportOptions{}
	}
	if collection == nil {
		return nil, &ExportError{Format: opts.Format, Message: "no collection"}
	}

	format := opts.Format
	if format == FormatUnknown {
		format = FormatNative
	}
	if !format.CanExport() {
		return nil, &ExportError{Format: format, Message: "format does not support export"}
	}

	exporter := GetExporter(format)
	if exporter == nil {
		return nil, &ExportError{Format: format, Message: "no exporter available for format"}
	}

	o := *opts
	o.Format = format
	data, err := exporter.Export(collection, o)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		Data:         data,
		Format:       format,
		RequestCount: collection.Count(),
	}, nil
}

// ExportError represents an error during export.
type ExportError struct {
	Format  Format
	Message string
	Cause   error
}

func (e *ExportError) Error() string {
	msg := e.Message
	if e.Format != FormatUnknown {
		msg = string(e.Format) + ": " + msg
	}
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// jsonToYAML re-encodes JSON output as YAML.
func jsonToYAML(data []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}
