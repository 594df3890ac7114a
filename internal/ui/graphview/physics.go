// Package graphview is a headless force-directed graph view. It owns node
// positions, the viewport transform, drag pins, focus highlighting and the
// legend, and renders the result as SVG or as a JSON snapshot.
package graphview

import (
	"math"
	"strings"

	"github.com/BurntSushi/toml"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// Physics tunes the simulation. Maps are keyed by node type ("Molecule") or,
// for link distances, by an unordered type pair ("Molecule|Target").
type Physics struct {
	LinkDistance        map[string]float64 `toml:"link_distance"`
	DefaultLinkDistance float64            `toml:"default_link_distance"`
	LinkStrength        float64            `toml:"link_strength"`

	Charge            map[string]float64 `toml:"charge"`
	DefaultCharge     float64            `toml:"default_charge"`
	ChargeDistanceMax float64            `toml:"charge_distance_max"`

	Radius            map[string]float64 `toml:"radius"`
	DefaultRadius     float64            `toml:"default_radius"`
	CollideMultiplier float64            `toml:"collide_multiplier"`
	CollideStrength   float64            `toml:"collide_strength"`

	CenterStrength float64 `toml:"center_strength"`
	AxisStrength   float64 `toml:"axis_strength"`

	AlphaMin      float64 `toml:"alpha_min"`
	AlphaDecay    float64 `toml:"alpha_decay"`
	VelocityDecay float64 `toml:"velocity_decay"`
	DragAlpha     float64 `toml:"drag_alpha_target"`
}

// DefaultPhysics returns the stock tuning. Molecule–target edges are longer
// than other pairs so the two clusters separate.
func DefaultPhysics() Physics {
	return Physics{
		LinkDistance: map[string]float64{
			PairKey(graph.NodeMolecule, graph.NodeTarget):   150,
			PairKey(graph.NodeMolecule, graph.NodeEffect):   120,
			PairKey(graph.NodeMolecule, graph.NodeOrganism): 100,
			PairKey(graph.NodeTarget, graph.NodeEffect):     110,
		},
		DefaultLinkDistance: 80,
		LinkStrength:        0.7,

		Charge: map[string]float64{
			string(graph.NodeMolecule): -300,
			string(graph.NodeTarget):   -200,
		},
		DefaultCharge:     -100,
		ChargeDistanceMax: 400,

		Radius: map[string]float64{
			string(graph.NodeMolecule): 8,
			string(graph.NodeTarget):   10,
			string(graph.NodeOrganism): 12,
			string(graph.NodeEffect):   7,
		},
		DefaultRadius:     6,
		CollideMultiplier: 1.5,
		CollideStrength:   0.7,

		CenterStrength: 0.05,
		AxisStrength:   0.05,

		AlphaMin:      0.001,
		AlphaDecay:    1 - math.Pow(0.001, 1.0/300),
		VelocityDecay: 0.4,
		DragAlpha:     0.3,
	}
}

// LoadPhysics reads a TOML tuning file and overlays it on the defaults. Keys
// absent from the file keep their default value.
func LoadPhysics(path string) (Physics, error) {
	p := DefaultPhysics()
	var file Physics
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return p, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to read physics file").WithDetail(path)
	}
	p.merge(file)
	return p, nil
}

func (p *Physics) merge(o Physics) {
	mergeMap := func(dst *map[string]float64, src map[string]float64) {
		if len(src) == 0 {
			return
		}
		if *dst == nil {
			*dst = map[string]float64{}
		}
		for k, v := range src {
			(*dst)[normalizeKey(k)] = v
		}
	}
	mergeMap(&p.LinkDistance, o.LinkDistance)
	mergeMap(&p.Charge, o.Charge)
	mergeMap(&p.Radius, o.Radius)

	set := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	set(&p.DefaultLinkDistance, o.DefaultLinkDistance)
	set(&p.LinkStrength, o.LinkStrength)
	set(&p.DefaultCharge, o.DefaultCharge)
	set(&p.ChargeDistanceMax, o.ChargeDistanceMax)
	set(&p.DefaultRadius, o.DefaultRadius)
	set(&p.CollideMultiplier, o.CollideMultiplier)
	set(&p.CollideStrength, o.CollideStrength)
	set(&p.CenterStrength, o.CenterStrength)
	set(&p.AxisStrength, o.AxisStrength)
	set(&p.AlphaMin, o.AlphaMin)
	set(&p.AlphaDecay, o.AlphaDecay)
	set(&p.VelocityDecay, o.VelocityDecay)
	set(&p.DragAlpha, o.DragAlpha)
}

// normalizeKey canonicalises a pair key so "Target|Molecule" and
// "Molecule|Target" address the same entry.
func normalizeKey(k string) string {
	parts := strings.Split(k, "|")
	if len(parts) != 2 {
		return k
	}
	return PairKey(graph.NodeType(strings.TrimSpace(parts[0])), graph.NodeType(strings.TrimSpace(parts[1])))
}

// PairKey is the unordered key for a node type pair.
func PairKey(a, b graph.NodeType) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}

// LinkDistanceFor is the rest length of an edge between the two types.
func (p Physics) LinkDistanceFor(a, b graph.NodeType) float64 {
	if d, ok := p.LinkDistance[PairKey(a, b)]; ok {
		return d
	}
	return p.DefaultLinkDistance
}

// ChargeFor is the many-body strength of a node of type t. Negative repels.
func (p Physics) ChargeFor(t graph.NodeType) float64 {
	if c, ok := p.Charge[string(t)]; ok {
		return c
	}
	return p.DefaultCharge
}

// RadiusFor is the rendered radius of a node of type t.
func (p Physics) RadiusFor(t graph.NodeType) float64 {
	if r, ok := p.Radius[string(t)]; ok {
		return r
	}
	return p.DefaultRadius
}
