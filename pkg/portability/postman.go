package portability

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rocketboy/rocketboy/pkg/request"
)

// Postman Collection v2.x types

// PostmanCollection represents a Postman Collection v2.x.
type PostmanCollection struct {
	Info     PostmanInfo       `json:"info"`
	Item     []PostmanItem     `json:"item"`
	Variable []PostmanVariable `json:"variable,omitempty"`
}

// PostmanInfo contains collection metadata.
type PostmanInfo struct {
	Name        string             `json:"name"`
	Description PostmanDescription `json:"description,omitempty"`
	Schema      string             `json:"schema"`
}

// PostmanItem is a request or, when Item is set, a folder.
type PostmanItem struct {
	Name        string             `json:"name"`
	Description PostmanDescription `json:"description,omitempty"`
	Request     *PostmanRequest    `json:"request,omitempty"`
	Item        []PostmanItem      `json:"item,omitempty"`
}

// PostmanRequest represents a Postman request.
type PostmanRequest struct {
	Method      string             `json:"method"`
	URL         PostmanURL         `json:"url"`
	Header      []PostmanHeader    `json:"header,omitempty"`
	Body        *PostmanBody       `json:"body,omitempty"`
	Auth        *PostmanAuth       `json:"auth,omitempty"`
	Description PostmanDescription `json:"description,omitempty"`
}

// PostmanURL is either a plain string or a structured URL object.
type PostmanURL struct {
	Raw      string         `json:"raw,omitempty"`
	Protocol string         `json:"protocol,omitempty"`
	Host     []string       `json:"host,omitempty"`
	Path     []string       `json:"path,omitempty"`
	Query    []PostmanQuery `json:"query,omitempty"`
}

// UnmarshalJSON accepts the string shorthand for a URL.
func (u *PostmanURL) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*u = PostmanURL{Raw: s}
		return nil
	}
	type plain PostmanURL
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = PostmanURL(p)
	return nil
}

// PostmanDescription is either a string or an object with a content field.
type PostmanDescription string

// UnmarshalJSON accepts both description shapes.
func (d *PostmanDescription) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = PostmanDescription(s)
		return nil
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*d = PostmanDescription(obj.Content)
	return nil
}

// PostmanQuery represents a query parameter or url-encoded field.
type PostmanQuery struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// PostmanHeader represents a request header.
type PostmanHeader struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Disabled bool   `json:"disabled,omitempty"`
}

// PostmanBody represents a request body. Only raw and urlencoded modes
// are imported.
type PostmanBody struct {
	Mode       string         `json:"mode"`
	Raw        string         `json:"raw,omitempty"`
	URLEncoded []PostmanQuery `json:"urlencoded,omitempty"`
}

// PostmanAuth represents authentication configuration.
type PostmanAuth struct {
	Type   string            `json:"type"`
	Bearer []PostmanVariable `json:"bearer,omitempty"`
}

// PostmanVariable represents a collection variable or auth attribute.
type PostmanVariable struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// PostmanImporter imports Postman Collection v2.x format. Folders become
// collection folders; {{variables}} declared on the collection are
// substituted.
type PostmanImporter struct{}

// Import parses a Postman Collection.
func (i *PostmanImporter) Import(data []byte) (*request.Collection, error) {
	var pc PostmanCollection
	if err := json.Unmarshal(data, &pc); err != nil {
		return nil, jsonImportError(FormatPostman, "failed to parse Postman Collection", data, err)
	}

	if !strings.Contains(pc.Info.Schema, "postman") {
		return nil, &ImportError{Format: FormatPostman, Message: "not a valid Postman Collection v2.x"}
	}

	vars := make(map[string]string, len(pc.Variable))
	for _, v := range pc.Variable {
		vars[v.Key] = v.Value
	}
	p := postmanParser{vars: vars}

	c := &request.Collection{Name: pc.Info.Name}
	if c.Name == "" {
		c.Name = "Imported from Postman"
	}
	c.Requests, c.Folders = p.items(pc.Item)
	return c, nil
}

// Format returns FormatPostman.
func (i *PostmanImporter) Format() Format {
	return FormatPostman
}

type postmanParser struct {
	vars map[string]string
}

func (p postmanParser) items(items []PostmanItem) ([]*request.Spec, []*request.Folder) {
	var specs []*request.Spec
	var folders []*request.Folder
	for _, item := range items {
		if item.Request == nil {
			if len(item.Item) == 0 {
				continue
			}
			f := &request.Folder{Name: item.Name}
			f.Requests, f.Folders = p.items(item.Item)
			folders = append(folders, f)
			continue
		}
		specs = append(specs, p.spec(item))
	}
	return specs, folders
}

func (p postmanParser) spec(item PostmanItem) *request.Spec {
	req := item.Request
	spec := &request.Spec{
		Name:        item.Name,
		Method:      strings.ToUpper(req.Method),
		URL:         p.url(req.URL),
		Description: string(item.Description),
	}
	if spec.Name == "" {
		spec.Name = request.DefaultName
	}
	if spec.Method == "" {
		spec.Method = request.MethodGet
	}
	if spec.Description == "" {
		spec.Description = string(req.Description)
	}

	for _, h := range req.Header {
		if h.Disabled || h.Key == "" {
			continue
		}
		spec.Headers = append(spec.Headers, request.Header{Name: h.Key, Value: p.subst(h.Value)})
	}

	if req.Auth != nil && req.Auth.Type == "bearer" {
		for _, kv := range req.Auth.Bearer {
			if kv.Key == "token" {
				spec.Headers = spec.Headers.Set("Authorization", "Bearer "+p.subst(kv.Value))
			}
		}
	}

	if req.Body != nil {
		switch req.Body.Mode {
		case "raw":
			spec.Body = p.subst(req.Body.Raw)
		case "urlencoded":
			spec.Body = p.form(req.Body.URLEncoded)
			if _, ok := spec.Headers.Get("Content-Type"); !ok {
				spec.Headers = append(spec.Headers, request.Header{
					Name:  "Content-Type",
					Value: "application/x-www-form-urlencoded",
				})
			}
		}
	}
	return spec
}

// url prefers the raw form and otherwise assembles the structured parts.
func (p postmanParser) url(u PostmanURL) string {
	if u.Raw != "" {
		return p.subst(u.Raw)
	}
	var b strings.Builder
	if u.Protocol != "" {
		b.WriteString(u.Protocol + "://")
	}
	b.WriteString(p.subst(strings.Join(u.Host, ".")))
	if len(u.Path) > 0 {
		b.WriteString("/" + p.subst(strings.Join(u.Path, "/")))
	}
	if q := p.form(u.Query); q != "" {
		b.WriteString("?" + q)
	}
	return b.String()
}

// form encodes enabled pairs in their original order.
func (p postmanParser) form(pairs []PostmanQuery) string {
	parts := make([]string, 0, len(pairs))
	for _, q := range pairs {
		if q.Disabled {
			continue
		}
		parts = append(parts, url.QueryEscape(p.subst(q.Key))+"="+url.QueryEscape(p.subst(q.Value)))
	}
	return strings.Join(parts, "&")
}

// subst replaces {{var}} references with collection variable values.
// Unknown variables are left in place.
func (p postmanParser) subst(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	for key, value := range p.vars {
		s = strings.ReplaceAll(s, "{{"+key+"}}", value)
	}
	return s
}
