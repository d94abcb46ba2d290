package portability

import (
	"sort"
	"sync"
)

// Registry maps formats to importers and exporters.
type Registry struct {
	mu        sync.RWMutex
	importers map[Format]Importer
	exporters map[Format]Exporter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		importers: make(map[Format]Importer),
		exporters: make(map[Format]Exporter),
	}
}

// defaultRegistry holds the built-in converters.
var defaultRegistry = func() *Registry {
	r := NewRegistry()
	r.RegisterImporter(&NativeImporter{})
	r.RegisterImporter(&OpenAPIImporter{})
	r.RegisterImporter(&PostmanImporter{})
	r.RegisterImporter(&CURLImporter{})
	r.RegisterExporter(&NativeExporter{})
	r.RegisterExporter(&OpenAPIExporter{})
	r.RegisterExporter(&CURLExporter{})
	return r
}()

// DefaultRegistry returns the registry used by Import and Export.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// GetImporter returns the importer for a format from the default registry.
func GetImporter(format Format) Importer {
	return defaultRegistry.GetImporter(format)
}

// GetExporter returns the exporter for a format from the default registry.
func GetExporter(format Format) Exporter {
	return defaultRegistry.GetExporter(format)
}

// RegisterImporter adds an importer, replacing any for the same format.
func (r *Registry) RegisterImporter(importer Importer) {
	if importer == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.importers[importer.Format()] = importer
}

// RegisterExporter adds an exporter, replacing any for the same format.
func (r *Registry) RegisterExporter(exporter Exporter) {
	if exporter == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exporters[exporter.Format()] = exporter
}

// GetImporter returns the importer for a format, or nil.
func (r *Registry) GetImporter(format Format) Importer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.importers[format]
}

// GetExporter returns the exporter for a format, or nil.
func (r *Registry) GetExporter(format Format) Exporter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exporters[format]
}

// ImportFormats lists the registered import formats in name order.
func (r *Registry) ImportFormats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.importers))
	for f := range r.importers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ExportFormats lists the registered export formats in name order.
func (r *Registry) ExportFormats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.exporters))
	for f := range r.exporters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
