// Package dom models a rendered page as a set of named regions. Page
// controllers write HTML fragments into regions; the HTTP layer serves either
// the whole document or individual regions as fragment swaps.
package dom

import (
	"html/template"
	"io"
	"sort"
	"sync"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
)

// Region is one mount point in a document.
type Region struct {
	ID      string
	HTML    template.HTML
	Version uint64
}

// Document is a goroutine-safe collection of regions.
type Document struct {
	mu      sync.RWMutex
	title   string
	regions map[string]*Region
	order   []string
}

// NewDocument creates a document with the given regions mounted.
func NewDocument(title string, regionIDs ...string) *Document {
	d := &Document{title: title, regions: make(map[string]*Region, len(regionIDs))}
	for _, id := range regionIDs {
		d.Mount(id)
	}
	return d
}

// Title returns the page title.
func (d *Document) Title() string { return d.title }

// Mount adds an empty region. Mounting an existing region is a no-op.
func (d *Document) Mount(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.regions[id]; ok {
		return
	}
	d.regions[id] = &Region{ID: id}
	d.order = append(d.order, id)
}

// Unmount removes a region.
func (d *Document) Unmount(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.regions[id]; !ok {
		return
	}
	delete(d.regions, id)
	for i, cur := range d.order {
		if cur == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Has reports whether region id is mounted.
func (d *Document) Has(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.regions[id]
	return ok
}

// Missing returns the subset of ids that are not mounted, sorted.
func (d *Document) Missing(ids ...string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for _, id := range ids {
		if _, ok := d.regions[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Set replaces the content of region id.
func (d *Document) Set(id string, html template.HTML) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.regions[id]
	if !ok {
		return apperrors.New(apperrors.ErrCodeMountPointMissing, "mount point missing").WithDetail("region=" + id)
	}
	r.HTML = html
	r.Version++
	return nil
}

// Get returns a copy of region id.
func (d *Document) Get(id string) (Region, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.regions[id]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// HTML returns the content of region id, or "" when it is not mounted.
func (d *Document) HTML(id string) template.HTML {
	r, _ := d.Get(id)
	return r.HTML
}

// IDs lists the mounted regions in mount order.
func (d *Document) IDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// Fragments returns the content of the named regions keyed by ID. Unknown
// regions are skipped. With no ids every region is returned.
func (d *Document) Fragments(ids ...string) map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(ids) == 0 {
		ids = d.order
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		if r, ok := d.regions[id]; ok {
			out[id] = string(r.HTML)
		}
	}
	return out
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/static/hyperblend.css">
</head>
<body>
{{range .Regions}}<div id="{{.ID}}" data-version="{{.Version}}">{{.HTML}}</div>
{{end}}</body>
</html>
`))

// Render writes the whole document as an HTML page.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	regions := make([]Region, 0, len(d.order))
	for _, id := range d.order {
		regions = append(regions, *d.regions[id])
	}
	d.mu.RUnlock()

	return pageTemplate.Execute(w, struct {
		Title   string
		Regions []Region
	}{d.title, regions})
}
