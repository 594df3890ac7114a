package repositories

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
)

// Labels lists the node labels of the curated entity kinds.
var Labels = []string{"Molecule", "Target", "Organism", "Effect"}

// Label returns the node label of k.
func Label(k common.Kind) string { return k.Label() }

// IDPrefix returns the canonical ID prefix of k: "M", "T", "O" or "E".
func IDPrefix(k common.Kind) string { return k.Prefix() }

// Relationship types between entity nodes. Each pair is stored in one
// direction; the first kind is the start node.
const (
	RelBindsTo      = "BINDS_TO"
	RelHasEffect    = "HAS_EFFECT"
	RelFromOrganism = "FROM_ORGANISM"
	RelMediates     = "MEDIATES"
	RelFoundIn      = "FOUND_IN"
)

type relSpec struct {
	Type     string
	Outgoing bool
}

// relationFor returns how a reference from kind `from` to kind `to` is
// stored.
func relationFor(from, to common.Kind) (relSpec, error) {
	type pair struct{ a, b common.Kind }
	table := map[pair]string{
		{common.KindMolecule, common.KindTarget}:   RelBindsTo,
		{common.KindMolecule, common.KindEffect}:   RelHasEffect,
		{common.KindMolecule, common.KindOrganism}: RelFromOrganism,
		{common.KindTarget, common.KindEffect}:     RelMediates,
		{common.KindTarget, common.KindOrganism}:   RelFoundIn,
	}
	if t, ok := table[pair{from, to}]; ok {
		return relSpec{Type: t, Outgoing: true}, nil
	}
	if t, ok := table[pair{to, from}]; ok {
		return relSpec{Type: t, Outgoing: false}, nil
	}
	return relSpec{}, errors.Newf(errors.ErrCodeValidation, "%s cannot reference %s", from, to)
}

var canonicalPattern = regexp.MustCompile(`^([A-Z])-(\d+)$`)

// canonicalNumber parses "<prefix>-<n>".
func canonicalNumber(id, prefix string) (int, bool) {
	m := canonicalPattern.FindStringSubmatch(id)
	if m == nil || m[1] != prefix {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// IsCanonicalID reports whether id has the canonical form for k.
func IsCanonicalID(k common.Kind, id string) bool {
	n, ok := canonicalNumber(id, IDPrefix(k))
	return ok && id == formatID(IDPrefix(k), n)
}

func formatID(prefix string, n int) string { return fmt.Sprintf("%s-%d", prefix, n) }

// idAllocator hands out the lowest canonical numbers not yet used.
type idAllocator struct {
	prefix string
	used   map[int]bool
	next   int
}

func newIDAllocator(prefix string, existing []string) *idAllocator {
	a := &idAllocator{prefix: prefix, used: map[int]bool{}, next: 1}
	for _, id := range existing {
		if n, ok := canonicalNumber(id, prefix); ok {
			a.used[n] = true
		}
	}
	return a
}

func (a *idAllocator) take() string {
	for a.used[a.next] {
		a.next++
	}
	a.used[a.next] = true
	return formatID(a.prefix, a.next)
}

func (a *idAllocator) reserve(id string) bool {
	n, ok := canonicalNumber(id, a.prefix)
	if !ok || a.used[n] {
		return false
	}
	a.used[n] = true
	return true
}
