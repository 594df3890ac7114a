package graphview

import (
	"math"
	"math/rand"

	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// body is one simulated node.
type body struct {
	node   graph.Node
	x, y   float64
	vx, vy float64
	fx, fy *float64
	radius float64
	charge float64
}

func (b *body) pinned() bool { return b.fx != nil && b.fy != nil }

func (b *body) pin(x, y float64) {
	b.fx, b.fy = &x, &y
}

func (b *body) unpin() {
	b.fx, b.fy = nil, nil
}

type spring struct {
	link           int
	source, target int
	distance       float64
	strength       float64
	bias           float64
}

// simulation is a velocity-Verlet force layout in the style of d3-force: a
// link force, a capped many-body force, collision, and weak centring.
type simulation struct {
	physics Physics
	bodies  []*body
	index   map[string]int
	springs []spring

	alpha       float64
	alphaTarget float64

	cx, cy float64
	rng    *rand.Rand
}

func newSimulation(p Physics, width, height float64, rng *rand.Rand) *simulation {
	return &simulation{
		physics: p,
		index:   map[string]int{},
		alpha:   1,
		cx:      width / 2,
		cy:      height / 2,
		rng:     rng,
	}
}

// load replaces the node and link set. Nodes keep their last position when
// their ID was already present; new nodes start at a random point near the
// centre. Links referencing unknown nodes are dropped.
func (s *simulation) load(nodes []graph.Node, links []graph.Link) {
	prev := make(map[string]*body, len(s.bodies))
	for _, b := range s.bodies {
		prev[b.node.ID] = b
	}

	s.bodies = make([]*body, 0, len(nodes))
	s.index = make(map[string]int, len(nodes))
	spread := math.Max(50, 10*math.Sqrt(float64(len(nodes)+1)))
	for _, n := range nodes {
		if _, dup := s.index[n.ID]; dup {
			continue
		}
		b := &body{
			node:   n,
			radius: s.physics.RadiusFor(n.Type),
			charge: s.physics.ChargeFor(n.Type),
		}
		if old, ok := prev[n.ID]; ok {
			b.x, b.y = old.x, old.y
			b.fx, b.fy = old.fx, old.fy
		} else {
			angle := s.rng.Float64() * 2 * math.Pi
			r := spread * math.Sqrt(s.rng.Float64())
			b.x = s.cx + r*math.Cos(angle)
			b.y = s.cy + r*math.Sin(angle)
		}
		s.index[n.ID] = len(s.bodies)
		s.bodies = append(s.bodies, b)
	}

	degree := make([]int, len(s.bodies))
	s.springs = s.springs[:0]
	for li, l := range links {
		si, ok1 := s.index[l.Source]
		ti, ok2 := s.index[l.Target]
		if !ok1 || !ok2 || si == ti {
			continue
		}
		degree[si]++
		degree[ti]++
		s.springs = append(s.springs, spring{
			link:     li,
			source:   si,
			target:   ti,
			distance: s.physics.LinkDistanceFor(s.bodies[si].node.Type, s.bodies[ti].node.Type),
		})
	}
	for i := range s.springs {
		sp := &s.springs[i]
		ds, dt := float64(degree[sp.source]), float64(degree[sp.target])
		sp.strength = s.physics.LinkStrength / math.Min(ds, dt)
		sp.bias = ds / (ds + dt)
	}
}

func (s *simulation) restart() {
	s.alpha = 1
}

func (s *simulation) settled() bool {
	return s.alpha < s.physics.AlphaMin && s.alphaTarget == 0
}

// step advances the simulation by n ticks, stopping early once it settles.
// It returns the number of ticks run.
func (s *simulation) step(n int) int {
	ran := 0
	for ; ran < n; ran++ {
		if s.settled() {
			break
		}
		s.tick()
	}
	return ran
}

func (s *simulation) tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.physics.AlphaDecay

	s.applyLinks()
	s.applyCharge()
	s.applyCollide()
	s.applyAxis()

	decay := 1 - s.physics.VelocityDecay
	for _, b := range s.bodies {
		if b.pinned() {
			b.x, b.y = *b.fx, *b.fy
			b.vx, b.vy = 0, 0
			continue
		}
		b.vx *= decay
		b.vy *= decay
		b.x += b.vx
		b.y += b.vy
	}
	s.applyCenter()
}

func (s *simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

func (s *simulation) applyLinks() {
	for _, sp := range s.springs {
		src, tgt := s.bodies[sp.source], s.bodies[sp.target]
		x := tgt.x + tgt.vx - src.x - src.vx
		y := tgt.y + tgt.vy - src.y - src.vy
		if x == 0 {
			x = s.jiggle()
		}
		if y == 0 {
			y = s.jiggle()
		}
		l := math.Sqrt(x*x + y*y)
		l = (l - sp.distance) / l * s.alpha * sp.strength
		x *= l
		y *= l
		tgt.vx -= x * sp.bias
		tgt.vy -= y * sp.bias
		src.vx += x * (1 - sp.bias)
		src.vy += y * (1 - sp.bias)
	}
}

// applyCharge is the pairwise many-body force. Each body pushes the others
// with its own strength; pairs further apart than ChargeDistanceMax are
// skipped.
func (s *simulation) applyCharge() {
	maxD2 := s.physics.ChargeDistanceMax * s.physics.ChargeDistanceMax
	for i, bi := range s.bodies {
		for j, bj := range s.bodies {
			if i == j {
				continue
			}
			dx := bj.x - bi.x
			dy := bj.y - bi.y
			l2 := dx*dx + dy*dy
			if maxD2 > 0 && l2 >= maxD2 {
				continue
			}
			if dx == 0 {
				dx = s.jiggle()
				l2 += dx * dx
			}
			if dy == 0 {
				dy = s.jiggle()
				l2 += dy * dy
			}
			if l2 < 1 {
				l2 = math.Sqrt(l2)
			}
			w := bj.charge * s.alpha / l2
			bi.vx += dx * w
			bi.vy += dy * w
		}
	}
}

func (s *simulation) applyCollide() {
	m := s.physics.CollideMultiplier
	for i := 0; i < len(s.bodies); i++ {
		bi := s.bodies[i]
		for j := i + 1; j < len(s.bodies); j++ {
			bj := s.bodies[j]
			r := (bi.radius + bj.radius) * m
			x := bi.x + bi.vx - bj.x - bj.vx
			y := bi.y + bi.vy - bj.y - bj.vy
			l2 := x*x + y*y
			if l2 >= r*r {
				continue
			}
			if x == 0 {
				x = s.jiggle()
				l2 += x * x
			}
			if y == 0 {
				y = s.jiggle()
				l2 += y * y
			}
			l := math.Sqrt(l2)
			l = (r - l) / l * s.physics.CollideStrength
			x *= l
			y *= l
			ri, rj := bi.radius*bi.radius, bj.radius*bj.radius
			w := rj / (ri + rj)
			bi.vx += x * w
			bi.vy += y * w
			bj.vx -= x * (1 - w)
			bj.vy -= y * (1 - w)
		}
	}
}

func (s *simulation) applyAxis() {
	k := s.physics.AxisStrength * s.alpha
	for _, b := range s.bodies {
		b.vx += (s.cx - b.x) * k
		b.vy += (s.cy - b.y) * k
	}
}

// applyCenter nudges the centroid toward the viewport centre. Pinned bodies
// are left where the user put them.
func (s *simulation) applyCenter() {
	if len(s.bodies) == 0 {
		return
	}
	var sx, sy float64
	for _, b := range s.bodies {
		sx += b.x
		sy += b.y
	}
	n := float64(len(s.bodies))
	dx := (s.cx - sx/n) * s.physics.CenterStrength
	dy := (s.cy - sy/n) * s.physics.CenterStrength
	for _, b := range s.bodies {
		if b.pinned() {
			continue
		}
		b.x += dx
		b.y += dy
	}
}

func (s *simulation) body(id string) (*body, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.bodies[i], true
}

// kineticEnergy is the sum of squared velocities, used by tests to check
// that the layout settles.
func (s *simulation) kineticEnergy() float64 {
	var e float64
	for _, b := range s.bodies {
		e += b.vx*b.vx + b.vy*b.vy
	}
	return e
}
