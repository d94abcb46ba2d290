package portability

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// NativeImporter reads rocketboy collections saved as YAML or JSON.
type NativeImporter struct{}

// Import parses a native collection document.
func (i *NativeImporter) Import(data []byte) (*request.Collection, error) {
	var c request.Collection
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, &ImportError{Format: FormatNative, Message: "failed to parse collection", Cause: err}
	}
	if c.Name == "" && len(c.Requests) == 0 && len(c.Folders) == 0 {
		return nil, &ImportError{Format: FormatNative, Message: "document holds no collection"}
	}
	if c.Name == "" {
		c.Name = request.DefaultCollectionName
	}
	c.Walk(func(_ []string, s *request.Spec) {
		if s.Name == "" {
			s.Name = request.DefaultName
		}
		s.Method = s.NormalizedMethod()
	})
	return &c, nil
}

// Format returns FormatNative.
func (i *NativeImporter) Format() Format {
	return FormatNative
}

// NativeExporter writes rocketboy collections. Result fields are never
// written.
type NativeExporter struct{}

// Export encodes c as YAML, or JSON when asked.
func (e *NativeExporter) Export(c *request.Collection, opts ExportOptions) ([]byte, error) {
	if opts.Encoding == EncodingJSON {
		clean := stripResults(c)
		data, err := json.MarshalIndent(clean, "", "  ")
		if err != nil {
			return nil, &ExportError{Format: FormatNative, Message: "failed to encode collection", Cause: err}
		}
		return data, nil
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, &ExportError{Format: FormatNative, Message: "failed to encode collection", Cause: err}
	}
	return data, nil
}

// Format returns FormatNative.
func (e *NativeExporter) Format() Format {
	return FormatNative
}

// stripResults returns a copy of c with every request's result fields
// cleared. The yaml tags already omit them; JSON needs the copy.
func stripResults(c *request.Collection) *request.Collection {
	out := &request.Collection{
		Name:       c.Name,
		PreScript:  c.PreScript,
		PostScript: c.PostScript,
		Requests:   stripSpecs(c.Requests),
		Folders:    stripFolders(c.Folders),
	}
	return out
}

func stripFolders(fs []*request.Folder) []*request.Folder {
	if fs == nil {
		return nil
	}
	out := make([]*request.Folder, 0, len(fs))
	for _, f := range fs {
		out = append(out, &request.Folder{
			Name:       f.Name,
			PreScript:  f.PreScript,
			PostScript: f.PostScript,
			Requests:   stripSpecs(f.Requests),
			Folders:    stripFolders(f.Folders),
		})
	}
	return out
}

func stripSpecs(specs []*request.Spec) []*request.Spec {
	if specs == nil {
		return nil
	}
	out := make([]*request.Spec, 0, len(specs))
	for _, s := range specs {
		c := s.Clone()
		c.ClearResults()
		out = append(out, c)
	}
	return out
}
