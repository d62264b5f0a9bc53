package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gowebpki/jcs"
	"github.com/warp/leave-register/generic"
)

// Slot is one fillable field of a template, addressed by its position.
type Slot struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Template is the ordered slot list of every page of a form.
type Template struct {
	Pages [][]Slot
}

// NewTemplate builds a template from slot names per page.
func NewTemplate(pages ...[]string) Template {
	t := Template{Pages: make([][]Slot, len(pages))}
	for i, names := range pages {
		t.Pages[i] = make([]Slot, len(names))
		for j, n := range names {
			t.Pages[i][j] = Slot{Name: n}
		}
	}
	return t
}

// SlotCount is the number of slots across all pages.
func (t Template) SlotCount() int {
	n := 0
	for _, p := range t.Pages {
		n += len(p)
	}
	return n
}

func (t Template) clone() Template {
	c := Template{Pages: make([][]Slot, len(t.Pages))}
	for i, p := range t.Pages {
		c.Pages[i] = append([]Slot(nil), p...)
	}
	return c
}

// LoadTemplate reads a slot list extracted from a form:
//
//	{"pages": [["EMPRESA", "CENTRO", "NIF", "NOMBRE", "MES", "Dia1", ...], [...]]}
func LoadTemplate(r io.Reader) (Template, error) {
	var doc struct {
		Pages [][]string `json:"pages"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Template{}, fmt.Errorf("%w: slot list: %v", generic.ErrInvalidTemplate, err)
	}
	if len(doc.Pages) == 0 {
		return Template{}, fmt.Errorf("%w: slot list has no pages", generic.ErrInvalidTemplate)
	}
	return NewTemplate(doc.Pages...), nil
}

// =============================================================================
// DOCUMENT - A filled template
// =============================================================================

// Document is a filled copy of a template. It owns its slots.
type Document struct {
	Pages    [][]Slot `json:"pages"`
	Filename string   `json:"filename"`
}

// Value returns the value at a page/slot position, "" when out of range.
func (d *Document) Value(page, index int) string {
	if page < 0 || page >= len(d.Pages) || index < 0 || index >= len(d.Pages[page]) {
		return ""
	}
	return d.Pages[page][index].Value
}

// Values flattens non-empty slots into name -> value, the shape form
// libraries take. When names repeat across slots the later slot wins.
func (d *Document) Values() map[string]string {
	out := make(map[string]string)
	for _, p := range d.Pages {
		for _, s := range p {
			if s.Value != "" {
				out[s.Name] = s.Value
			}
		}
	}
	return out
}

// Encode returns canonical JSON (RFC 8785). Equal documents encode to equal
// bytes.
func (d *Document) Encode() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}
	return out, nil
}
