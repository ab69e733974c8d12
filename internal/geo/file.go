package geo

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/africa-covid/backend/internal/contracts"
)

// File is the YAML form of a registry extension.
// Entries are merged over the built-in registry by iso3 unless Replace is set.
type File struct {
	Replace   bool              `yaml:"replace" json:"replace"`
	Countries []FileCountry     `yaml:"countries" json:"countries"`
	Overrides map[string]string `yaml:"overrides" json:"overrides"`
}

// FileCountry is one registry row
type FileCountry struct {
	Name      string `yaml:"name" json:"name"`
	ISO3      string `yaml:"iso3" json:"iso3"`
	Continent string `yaml:"continent" json:"continent"`
	Region    string `yaml:"region" json:"region"`
}

// ValidationError points at the offending field of a registry file
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads a registry file and returns the merged resolver with the file hash
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func LoadFile(path string) (*Resolver, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read country table: %w", err)
	}

	f, err := ParseFile(data)
	if err != nil {
		return nil, "", fmt.Errorf("country table %s: %w", path, err)
	}

	r, err := f.Resolver()
	if err != nil {
		return nil, "", fmt.Errorf("country table %s: %w", path, err)
	}

	hash, err := f.Hash()
	if err != nil {
		return nil, "", err
	}
	return r, hash, nil
}

// ParseFile decodes and validates a registry file
func ParseFile(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every row; the first violation is returned
func (f *File) Validate() error {
	if f.Replace && len(f.Countries) == 0 {
		return ValidationError{"countries", "required when replace is true"}
	}
	for i, c := range f.Countries {
		field := fmt.Sprintf("countries[%d]", i)
		if strings.TrimSpace(c.Name) == "" {
			return ValidationError{field + ".name", "required"}
		}
		if len(c.ISO3) != 3 {
			return ValidationError{field + ".iso3", fmt.Sprintf("%q is not a 3-letter code", c.ISO3)}
		}
		if strings.TrimSpace(c.Continent) == "" {
			return ValidationError{field + ".continent", "required"}
		}
	}
	for raw, canonical := range f.Overrides {
		if strings.TrimSpace(canonical) == "" {
			return ValidationError{fmt.Sprintf("overrides[%q]", raw), "empty target"}
		}
	}
	return nil
}

// Resolver merges the file over the built-in registry
func (f *File) Resolver() (*Resolver, error) {
	var countries []contracts.CountryIdentity
	overrides := make(map[string]string)

	if !f.Replace {
		replaced := make(map[string]bool, len(f.Countries))
		for _, c := range f.Countries {
			replaced[strings.ToUpper(c.ISO3)] = true
		}
		for _, c := range defaultCountries {
			if !replaced[c.ISO3] {
				countries = append(countries, c)
			}
		}
		for raw, canonical := range defaultOverrides {
			overrides[raw] = canonical
		}
	}

	for _, c := range f.Countries {
		countries = append(countries, contracts.CountryIdentity{
			Name:      strings.TrimSpace(c.Name),
			ISO3:      strings.ToUpper(c.ISO3),
			Continent: strings.TrimSpace(c.Continent),
			Region:    strings.TrimSpace(c.Region),
		})
	}
	for raw, canonical := range f.Overrides {
		overrides[raw] = canonical
	}

	return NewResolver(countries, overrides)
}

// Hash identifies the table content (canonical JSON, sha256)
// 주의: json.Marshal 은 map 키를 정렬하므로 해시가 재현 가능
func (f *File) Hash() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("hash country table: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
