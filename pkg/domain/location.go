package domain

import "fmt"

// Location identifies the sub-store a target parameter belongs to. The set is
// closed: every branch on location happens through this enum rather than
// ad-hoc strings.
type Location string

const (
	// LocationConfig addresses the simulator's main configuration tree.
	LocationConfig Location = "config"
	// LocationRules addresses the behavior rule set.
	LocationRules Location = "rules"
	// LocationICCell addresses initial-condition cell placements.
	LocationICCell Location = "ic_cell"
	// LocationICECM addresses initial-condition extracellular matrix state.
	LocationICECM Location = "ic_ecm"
	// LocationIntracellular addresses intracellular model parameters.
	LocationIntracellular Location = "intracellular"
)

// Locations returns the closed set of known locations in canonical order.
func Locations() []Location {
	return []Location{LocationConfig, LocationRules, LocationICCell, LocationICECM, LocationIntracellular}
}

// ParseLocation validates a location string against the closed set.
func ParseLocation(s string) (Location, error) {
	for _, loc := range Locations() {
		if string(loc) == s {
			return loc, nil
		}
	}
	return "", fmt.Errorf("unknown location %q", s)
}

// String returns the canonical location tag.
func (l Location) String() string { return string(l) }
