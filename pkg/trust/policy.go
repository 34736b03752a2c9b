// Package trust maps source identifiers to trust tiers and decides which
// fight columns a reconciliation write may touch.
package trust

import (
	"strings"
)

// Tier classifies how much a source's writes are allowed to affect
type Tier string

const (
	// TierProduction sources write published and shadow fields
	TierProduction Tier = "production"
	// TierShadow sources write shadow fields only
	TierShadow Tier = "shadow"
	// TierNone means no live source; the lifecycle driver is authoritative
	TierNone Tier = "none"
)

// Policy is the process-wide source trust list. Promoting a source from
// shadow to production is a configuration change, not a code change.
type Policy struct {
	tiers map[string]Tier
}

// NewPolicy builds a policy from per-tier source id lists. A source listed in
// both tiers resolves to production.
func NewPolicy(productionSources, shadowSources []string) *Policy {
	tiers := make(map[string]Tier, len(productionSources)+len(shadowSources))
	for _, id := range shadowSources {
		if id = normalizeSourceID(id); id != "" {
			tiers[id] = TierShadow
		}
	}
	for _, id := range productionSources {
		if id = normalizeSourceID(id); id != "" {
			tiers[id] = TierProduction
		}
	}
	return &Policy{tiers: tiers}
}

// TierFor returns the tier for a source id. Unknown sources get TierNone,
// which routes their events to the lifecycle driver fallback only.
func (p *Policy) TierFor(sourceID string) Tier {
	if tier, ok := p.tiers[normalizeSourceID(sourceID)]; ok {
		return tier
	}
	return TierNone
}

func normalizeSourceID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ShadowColumn maps a published column name to its shadow mirror
func ShadowColumn(published string) string {
	return "shadow_" + published
}

// BuildWriteValues is the write-selection rule: given candidate changes keyed
// by published column name, the shadow mirror of every candidate column is
// always written; the published columns themselves only when the source is
// production-trusted. Pure function of (candidate fields, tier).
func BuildWriteValues(candidate map[string]any, tier Tier) map[string]any {
	if len(candidate) == 0 {
		return nil
	}
	values := make(map[string]any, len(candidate)*2)
	for col, value := range candidate {
		values[ShadowColumn(col)] = value
	}
	if tier == TierProduction {
		for col, value := range candidate {
			values[col] = value
		}
	}
	return values
}
