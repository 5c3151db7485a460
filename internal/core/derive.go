package core

import "fibretrace/pkg/domain"

// DerivedAttributes holds the inherited attributes computed for a fibre pack
// from its parent sorted packs.
type DerivedAttributes struct {
	Material string   `json:"material"`
	Color    string   `json:"color"`
	Brands   []string `json:"brands"`
}

// DeriveFibreAttributes computes the attributes a fibre pack inherits from its
// parents: the distinct brand set in order of first appearance, and the shared
// material and color when the parents agree, or the Blend/Mixed sentinels when
// they do not. The function is total: an empty parent list yields the zero
// value (callers are required to link at least one parent, so that case only
// arises from misuse).
func DeriveFibreAttributes(parents []SortedPack) DerivedAttributes {
	if len(parents) == 0 {
		return DerivedAttributes{}
	}

	derived := DerivedAttributes{
		Material: parents[0].Material,
		Color:    parents[0].Color,
	}
	seenBrands := make(map[string]struct{}, len(parents))
	for _, parent := range parents {
		if parent.Material != derived.Material {
			derived.Material = domain.MaterialBlend
		}
		if parent.Color != derived.Color {
			derived.Color = domain.ColorMixed
		}
		if _, ok := seenBrands[parent.Brand]; ok {
			continue
		}
		seenBrands[parent.Brand] = struct{}{}
		derived.Brands = append(derived.Brands, parent.Brand)
	}
	return derived
}
