package models

import (
	"fmt"
	"strings"
	"time"
)

// Region is a distribution region tag.
type Region string

const (
	RegionNorth         Region = "AFRIQUE_DU_NORD"
	RegionWest          Region = "AFRIQUE_DE_L_OUEST"
	RegionCentral       Region = "AFRIQUE_CENTRALE"
	RegionEast          Region = "AFRIQUE_DE_L_EST"
	RegionSouthern      Region = "AFRIQUE_AUSTRALE"
	RegionInternational Region = "INTERNATIONAL"
)

// Regions lists every region in display order.
var Regions = []Region{
	RegionNorth, RegionWest, RegionCentral, RegionEast, RegionSouthern, RegionInternational,
}

// Valid reports whether r belongs to the closed region set.
func (r Region) Valid() bool {
	for _, v := range Regions {
		if v == r {
			return true
		}
	}
	return false
}

// ParseRegion parses a region tag case-insensitively. An empty input yields
// an empty region.
func ParseRegion(raw string) (Region, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	r := Region(strings.ToUpper(raw))
	if !r.Valid() {
		return "", fmt.Errorf("unknown region %q", raw)
	}
	return r, nil
}

// PublicationConfig parameterises the advanced publish transition.
type PublicationConfig struct {
	// ScheduledAt nil means immediate publication.
	ScheduledAt   *time.Time `json:"datePublicationProgrammee,omitempty"`
	PreviewOnly   bool       `json:"avantPremiere"`
	PreviewEndsAt *time.Time `json:"finAvantPremiere,omitempty"`
	// TargetRegions empty means all regions.
	TargetRegions     []Region `json:"regionsCibles"`
	NotifySubscribers bool     `json:"notifierAbonnes"`
	CrossPostSocial   bool     `json:"partagerReseauxSociaux"`
}

// IsDefault reports whether the config requests nothing beyond an immediate,
// unrestricted publication.
func (p PublicationConfig) IsDefault() bool {
	return p.ScheduledAt == nil && !p.PreviewOnly && len(p.TargetRegions) == 0 &&
		!p.NotifySubscribers && !p.CrossPostSocial
}
