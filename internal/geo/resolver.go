package geo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/africa-covid/backend/internal/contracts"
)

// Resolver maps source country names and iso3 codes to canonical identities.
// It is immutable after construction and safe for concurrent use.
// ⭐ SSOT: 국가 이름 → ISO3 변환은 여기서만
type Resolver struct {
	overrides map[string]string
	byName    map[string]contracts.CountryIdentity
	byISO3    map[string]contracts.CountryIdentity
}

// NewResolver builds a resolver over a registry and an override table
func NewResolver(countries []contracts.CountryIdentity, overrides map[string]string) (*Resolver, error) {
	r := &Resolver{
		overrides: make(map[string]string, len(overrides)),
		byName:    make(map[string]contracts.CountryIdentity, len(countries)),
		byISO3:    make(map[string]contracts.CountryIdentity, len(countries)),
	}

	for _, c := range countries {
		if len(c.ISO3) != 3 {
			return nil, fmt.Errorf("register %q: invalid iso3 %q", c.Name, c.ISO3)
		}
		c.ISO3 = strings.ToUpper(c.ISO3)
		if _, dup := r.byISO3[c.ISO3]; dup {
			return nil, fmt.Errorf("register %q: duplicate iso3 %s", c.Name, c.ISO3)
		}
		r.byISO3[c.ISO3] = c
		r.byName[nameKey(c.Name)] = c
	}

	for raw, canonical := range overrides {
		if _, ok := r.byName[nameKey(canonical)]; !ok {
			return nil, fmt.Errorf("override %q: target %q is not registered", raw, canonical)
		}
		r.overrides[raw] = canonical
	}

	return r, nil
}

// Default returns the resolver over the built-in registry
func Default() *Resolver {
	r, err := NewResolver(defaultCountries, defaultOverrides)
	if err != nil {
		panic(fmt.Sprintf("built-in country registry: %v", err))
	}
	return r
}

// nameKey folds case and inner whitespace
func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Resolve maps a display name, after the override table, to its identity
func (r *Resolver) Resolve(rawName string) (contracts.CountryIdentity, error) {
	name := strings.TrimSpace(rawName)
	if canonical, ok := r.overrides[name]; ok {
		name = canonical
	}

	if id, ok := r.byName[nameKey(name)]; ok {
		return id, nil
	}
	return contracts.CountryIdentity{}, fmt.Errorf("resolve %q: %w: %w", rawName, contracts.ErrUnresolvedIdentity, contracts.ErrNotFound)
}

// ResolveISO3 is the reverse lookup by iso3 code (case-insensitive)
func (r *Resolver) ResolveISO3(code string) (contracts.CountryIdentity, error) {
	if id, ok := r.byISO3[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return id, nil
	}
	return contracts.CountryIdentity{}, fmt.Errorf("resolve iso3 %q: %w: %w", code, contracts.ErrUnresolvedIdentity, contracts.ErrNotFound)
}

// Lookup accepts either an iso3 code or a resolvable name
func (r *Resolver) Lookup(key string) (contracts.CountryIdentity, error) {
	if len(strings.TrimSpace(key)) == 3 {
		if id, err := r.ResolveISO3(key); err == nil {
			return id, nil
		}
	}
	return r.Resolve(key)
}

// Members returns the registered countries of a continent, sorted by name
func (r *Resolver) Members(continent string) []contracts.CountryIdentity {
	var out []contracts.CountryIdentity
	for _, id := range r.byISO3 {
		if strings.EqualFold(id.Continent, continent) {
			out = append(out, id)
		}
	}
	sortByName(out)
	return out
}

// Regions returns the distinct regions of a continent, sorted
func (r *Resolver) Regions(continent string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range r.byISO3 {
		if strings.EqualFold(id.Continent, continent) && !seen[id.Region] {
			seen[id.Region] = true
			out = append(out, id.Region)
		}
	}
	sort.Strings(out)
	return out
}

// InContinent reports whether the identity belongs to one of the continents
func InContinent(id contracts.CountryIdentity, continents []string) bool {
	for _, c := range continents {
		if strings.EqualFold(id.Continent, c) {
			return true
		}
	}
	return false
}

func sortByName(ids []contracts.CountryIdentity) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Name < ids[j].Name
	})
}
