package portability

import (
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents a supported import/export format.
type Format string

// Supported formats for import/export.
const (
	FormatUnknown Format = ""
	FormatNative  Format = "rocketboy" // Native collection (YAML/JSON)
	FormatOpenAPI Format = "openapi"   // OpenAPI 3.x or Swagger 2.0
	FormatPostman Format = "postman"   // Postman Collection v2.x
	FormatCURL    Format = "curl"      // cURL command lines
)

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// IsValid returns true if the format is a known format.
func (f Format) IsValid() bool {
	switch f {
	case FormatNative, FormatOpenAPI, FormatPostman, FormatCURL:
		return true
	default:
		return false
	}
}

// CanImport returns true if this format supports importing.
func (f Format) CanImport() bool {
	return f.IsValid()
}

// CanExport returns true if this format supports exporting.
func (f Format) CanExport() bool {
	switch f {
	case FormatNative, FormatOpenAPI, FormatCURL:
		return true
	default:
		return false
	}
}

// DetectFormat guesses the format from content first and the file
// extension second. Content wins because .json and .yaml are shared by
// every structured format.
func DetectFormat(data []byte, filename string) Format {
	trimmed := strings.TrimSpace(string(data))
	if isCURL(trimmed) {
		return FormatCURL
	}

	if f := detectFromKeys(data); f != FormatUnknown {
		return f
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".curl", ".sh":
		return FormatCURL
	case ".postman_collection":
		return FormatPostman
	}
	return FormatUnknown
}

func isCURL(s string) bool {
	return strings.HasPrefix(s, "curl ") || strings.HasPrefix(s, "curl\t")
}

// detectFromKeys inspects the top-level keys of a JSON or YAML document.
// YAML is a superset of JSON so one decoder covers both.
func detectFromKeys(data []byte) Format {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil || raw == nil {
		return FormatUnknown
	}

	if _, ok := raw["openapi"]; ok {
		return FormatOpenAPI
	}
	if _, ok := raw["swagger"]; ok {
		return FormatOpenAPI
	}

	_, hasInfo := raw["info"]
	_, hasItem := raw["item"]
	if hasInfo && hasItem {
		return FormatPostman
	}

	_, hasRequests := raw["requests"]
	_, hasFolders := raw["folders"]
	if hasRequests || hasFolders {
		return FormatNative
	}
	return FormatUnknown
}

// ParseFormat parses a format string into a Format type.
// Returns FormatUnknown for unrecognized format strings.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rocketboy", "native", "yaml":
		return FormatNative
	case "openapi", "swagger", "oas":
		return FormatOpenAPI
	case "postman":
		return FormatPostman
	case "curl":
		return FormatCURL
	default:
		return FormatUnknown
	}
}

// ImportFormats returns the formats that support importing.
func ImportFormats() []Format {
	return []Format{FormatNative, FormatOpenAPI, FormatPostman, FormatCURL}
}

// ExportFormats returns the formats that support exporting.
func ExportFormats() []Format {
	return []Format{FormatNative, FormatOpenAPI, FormatCURL}
}
