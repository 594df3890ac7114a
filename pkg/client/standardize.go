package client

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
)

var (
	prefixedMoleculeID = regexp.MustCompile(`^[Mm]-?(\d+)$`)
	numericID          = regexp.MustCompile(`^\d+$`)
	compoundID         = regexp.MustCompile(`^(\d+):([^:]+):(\d+)$`)
)

// StandardizeMoleculeID maps the ID forms found in the wild onto the canonical
// "M-<n>" form. "m12", "M-012" and "12" all become "M-12"; a graph element ID
// such as "4:<uuid>:66" becomes "M-66". Unrecognised values are returned
// unchanged. The mapping is idempotent.
func StandardizeMoleculeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return id
	}
	if m := prefixedMoleculeID.FindStringSubmatch(id); m != nil {
		return "M-" + trimLeadingZeros(m[1])
	}
	if numericID.MatchString(id) {
		return "M-" + trimLeadingZeros(id)
	}
	if m := compoundID.FindStringSubmatch(id); m != nil {
		return "M-" + trimLeadingZeros(m[3])
	}
	return id
}

func trimLeadingZeros(digits string) string {
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		t := strings.TrimLeft(digits, "0")
		if t == "" {
			return "0"
		}
		return t
	}
	return strconv.FormatUint(n, 10)
}

// EnsureStandardized canonicalises m.ID, recording the replaced value in
// OriginalID when none was recorded yet.
func EnsureStandardized(m entity.Molecule) entity.Molecule {
	std := StandardizeMoleculeID(m.ID)
	if std == m.ID {
		return m
	}
	if m.OriginalID == "" {
		m.OriginalID = m.ID
	}
	m.ID = std
	return m
}

// IsCompoundID reports whether id looks like a graph element ID
// "<n>:<token>:<n>".
func IsCompoundID(id string) bool {
	return compoundID.MatchString(id)
}

// LookupKey returns the key the detail endpoints accept for id. Compound
// element IDs reduce to their trailing segment; the middle segment must be a
// valid UUID. Other IDs are returned unchanged.
func LookupKey(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.New(apperrors.ErrCodeInvalidEntityID, "entity ID is required")
	}
	m := compoundID.FindStringSubmatch(id)
	if m == nil {
		if strings.Count(id, ":") > 0 {
			return "", apperrors.New(apperrors.ErrCodeInvalidEntityID, "invalid element ID").WithDetail("id=" + id)
		}
		return id, nil
	}
	if _, err := uuid.Parse(m[2]); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInvalidEntityID, "invalid element ID").WithDetail("id=" + id)
	}
	return m[3], nil
}
