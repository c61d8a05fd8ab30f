package collection

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Identifier names a collection by GUID or by display name.
type Identifier struct {
	GUID uuid.UUID
	Name string
}

// ParseIdentifier treats s as a GUID when it parses as one, otherwise as
// a display name. Surrounding whitespace is not significant for GUIDs;
// names are kept verbatim because matching is exact.
func ParseIdentifier(s string) (Identifier, error) {
	if id, err := uuid.Parse(strings.TrimSpace(s)); err == nil {
		return Identifier{GUID: id}, nil
	}
	if strings.TrimSpace(s) == "" {
		return Identifier{}, errors.New("collection: empty identifier")
	}
	return Identifier{Name: s}, nil
}

// ByGUID returns an identifier for a GUID string.
func ByGUID(s string) (Identifier, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return Identifier{}, err
	}
	return Identifier{GUID: id}, nil
}

// ByName returns an identifier for a display name.
func ByName(name string) Identifier {
	return Identifier{Name: name}
}

// IsGUID reports whether the identifier is a GUID.
func (i Identifier) IsGUID() bool { return i.GUID != uuid.Nil }

func (i Identifier) String() string {
	if i.IsGUID() {
		return i.GUID.String()
	}
	return i.Name
}
