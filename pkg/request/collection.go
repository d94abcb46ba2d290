package request

// DefaultCollectionName is used for collections created without a name.
const DefaultCollectionName = "New Collection"

// Collection is a named, nestable group of requests.
type Collection struct {
	Name       string    `json:"name" yaml:"name"`
	Requests   []*Spec   `json:"requests,omitempty" yaml:"requests,omitempty"`
	Folders    []*Folder `json:"folders,omitempty" yaml:"folders,omitempty"`
	PreScript  string    `json:"preScript,omitempty" yaml:"preScript,omitempty"`
	PostScript string    `json:"postScript,omitempty" yaml:"postScript,omitempty"`
}

// Folder groups requests inside a collection.
type Folder struct {
	Name       string    `json:"name" yaml:"name"`
	Requests   []*Spec   `json:"requests,omitempty" yaml:"requests,omitempty"`
	Folders    []*Folder `json:"folders,omitempty" yaml:"folders,omitempty"`
	PreScript  string    `json:"preScript,omitempty" yaml:"preScript,omitempty"`
	PostScript string    `json:"postScript,omitempty" yaml:"postScript,omitempty"`
}

// Walk calls fn for every request in the collection, depth first: the
// collection's own requests, then each folder in order. path holds the
// folder names leading to the request.
func (c *Collection) Walk(fn func(path []string, spec *Spec)) {
	if c == nil {
		return
	}
	for _, r := range c.Requests {
		fn(nil, r)
	}
	for _, f := range c.Folders {
		f.walk(nil, fn)
	}
}

func (f *Folder) walk(parent []string, fn func(path []string, spec *Spec)) {
	if f == nil {
		return
	}
	path := append(append([]string(nil), parent...), f.Name)
	for _, r := range f.Requests {
		fn(path, r)
	}
	for _, sub := range f.Folders {
		sub.walk(path, fn)
	}
}

// Count returns the number of requests in the collection including folders.
func (c *Collection) Count() int {
	n := 0
	c.Walk(func([]string, *Spec) { n++ })
	return n
}

// Flatten returns every request in Walk order.
func (c *Collection) Flatten() []*Spec {
	var out []*Spec
	c.Walk(func(_ []string, s *Spec) { out = append(out, s) })
	return out
}
