package normalize

import (
	"fmt"
	"strings"

	"github.com/amishk599/agregador/internal/model"
)

// ProvinceResolver matches location text against the province reference
// table. Matching is a case- and accent-insensitive substring test in table
// order; the first match wins.
type ProvinceResolver struct {
	provinces []model.Province
	folded    []string
	fallback  *model.Province
}

// NewProvinceResolver builds a resolver. defaultName may be empty; when set it
// must name a province in the table.
func NewProvinceResolver(provinces []model.Province, defaultName string) (*ProvinceResolver, error) {
	r := &ProvinceResolver{
		provinces: provinces,
		folded:    make([]string, len(provinces)),
	}
	for i, p := range provinces {
		r.folded[i] = Fold(p.Name)
	}

	if defaultName != "" {
		want := Fold(defaultName)
		for i, f := range r.folded {
			if f == want {
				p := provinces[i]
				r.fallback = &p
				break
			}
		}
		if r.fallback == nil {
			return nil, fmt.Errorf("default province %q is not in the province table", defaultName)
		}
	}
	return r, nil
}

// Resolve returns the province named in location, the default province when
// nothing matches, or an *model.UnresolvedLocationError.
func (r *ProvinceResolver) Resolve(location string) (model.Province, error) {
	folded := Fold(location)
	if folded != "" {
		for i, name := range r.folded {
			if strings.Contains(folded, name) {
				return r.provinces[i], nil
			}
		}
	}
	if r.fallback != nil {
		return *r.fallback, nil
	}
	return model.Province{}, &model.UnresolvedLocationError{Location: location}
}
