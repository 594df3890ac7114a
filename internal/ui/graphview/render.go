package graphview

import (
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// NodeSnapshot is a node with its layout state.
type NodeSnapshot struct {
	graph.Node
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Radius      float64 `json:"radius"`
	Stroke      float64 `json:"stroke"`
	Color       string  `json:"color"`
	Pinned      bool    `json:"pinned"`
	Highlighted bool    `json:"highlighted"`
}

// LinkSnapshot is a link with its drawing colour.
type LinkSnapshot struct {
	graph.Link
	Color string `json:"color"`
}

// Snapshot is the JSON form of the view served to the landing page.
type Snapshot struct {
	State         string         `json:"state"`
	Width         float64        `json:"width"`
	Height        float64        `json:"height"`
	Transform     Transform      `json:"transform"`
	LabelsVisible bool           `json:"labels_visible"`
	Alpha         float64        `json:"alpha"`
	Nodes         []NodeSnapshot `json:"nodes"`
	Links         []LinkSnapshot `json:"links"`
	Legend        Legend         `json:"legend"`
	Stats         graph.Stats    `json:"stats"`
}

// Snapshot captures the current layout.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *View) snapshotLocked() Snapshot {
	s := Snapshot{
		State:         v.state.String(),
		Width:         v.width,
		Height:        v.height,
		Transform:     v.transform,
		LabelsVisible: v.transform.K >= v.labelThreshold,
		Alpha:         v.sim.alpha,
		Nodes:         make([]NodeSnapshot, 0, len(v.sim.bodies)),
		Links:         make([]LinkSnapshot, 0, len(v.data.Links)),
		Legend:        v.legend,
		Stats:         v.data.ComputeStats(),
	}
	for _, b := range v.sim.bodies {
		r, stroke := v.styleLocked(b)
		s.Nodes = append(s.Nodes, NodeSnapshot{
			Node:        b.node,
			X:           b.x,
			Y:           b.y,
			Radius:      r,
			Stroke:      stroke,
			Color:       nodeColor(b.node.Type),
			Pinned:      b.pinned(),
			Highlighted: b.node.ID == v.highlight,
		})
	}
	for _, l := range v.data.Links {
		if _, ok := v.sim.index[l.Source]; !ok {
			continue
		}
		if _, ok := v.sim.index[l.Target]; !ok {
			continue
		}
		s.Links = append(s.Links, LinkSnapshot{Link: l, Color: linkColor(l.ActivityType)})
	}
	return s
}

// SVG renders the current layout.
func (v *View) SVG() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.svgLocked()
}

// Render writes the SVG into the mount region.
func (v *View) Render() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.ready(); err != nil {
		return err
	}
	return v.renderLocked()
}

func (v *View) renderLocked() error {
	if err := v.doc.Set(v.mountID, template.HTML(v.svgLocked())); err != nil {
		v.logger.Warn("graph render skipped: mount point gone")
		return err
	}
	return nil
}

func (v *View) svgLocked() string {
	var sb strings.Builder
	t := v.transform
	fmt.Fprintf(&sb, `<svg class="hb-graph" xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`,
		v.width, v.height, v.width, v.height)
	fmt.Fprintf(&sb, `<g class="viewport" transform="translate(%.2f,%.2f) scale(%.4f)">`, t.X, t.Y, t.K)

	sb.WriteString(`<g class="links">`)
	for _, sp := range v.sim.springs {
		src, tgt := v.sim.bodies[sp.source], v.sim.bodies[sp.target]
		l := v.data.Links[sp.link]
		fmt.Fprintf(&sb, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" data-type="%s"`,
			src.x, src.y, tgt.x, tgt.y, linkColor(l.ActivityType), html.EscapeString(l.Type))
		if l.ActivityType != "" {
			fmt.Fprintf(&sb, ` data-activity="%s"`, html.EscapeString(string(l.ActivityType)))
		}
		sb.WriteString(`/>`)
	}
	sb.WriteString(`</g><g class="nodes">`)

	showLabels := t.K >= v.labelThreshold
	for _, b := range v.sim.bodies {
		r, stroke := v.styleLocked(b)
		class := "node"
		if b.node.ID == v.highlight {
			class += " highlighted"
		}
		if b.pinned() {
			class += " pinned"
		}
		fmt.Fprintf(&sb, `<g class="%s" data-id="%s" data-type="%s">`,
			class, html.EscapeString(b.node.ID), html.EscapeString(string(b.node.Type)))
		fmt.Fprintf(&sb, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s" stroke="#fff" stroke-width="%g"/>`,
			b.x, b.y, r, nodeColor(b.node.Type), stroke)
		if showLabels {
			fmt.Fprintf(&sb, `<text class="label" x="%.2f" y="%.2f">%s</text>`, b.x+r+2, b.y+4, html.EscapeString(b.node.Name))
		}
		sb.WriteString(`</g>`)
	}
	sb.WriteString(`</g></g>`)

	sb.WriteString(`<g class="legend" transform="translate(12,16)">`)
	row := 0
	for _, e := range v.legend.NodeTypes {
		fmt.Fprintf(&sb, `<g transform="translate(0,%d)"><circle r="6" fill="%s"/><text x="12" y="4">%s (%d)</text></g>`,
			row*18, e.Color, html.EscapeString(e.Label), e.Count)
		row++
	}
	for _, e := range v.legend.Activities {
		fmt.Fprintf(&sb, `<g transform="translate(0,%d)"><line class="swatch" x1="-6" x2="6" stroke="%s" stroke-width="3"/><text x="12" y="4">%s</text></g>`,
			row*18, e.Color, html.EscapeString(strings.ReplaceAll(e.Label, "_", " ")))
		row++
	}
	sb.WriteString(`</g></svg>`)
	return sb.String()
}
