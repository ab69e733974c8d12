package geo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/africa-covid/backend/internal/contracts"
)

const extensionYAML = `
countries:
  - name: Somaliland
    iso3: SLX
    continent: Africa
    region: Eastern Africa
  - name: Côte d'Ivoire
    iso3: civ
    continent: Africa
    region: Western Africa
overrides:
  "Republic of Somaliland": Somaliland
`

func TestParseFile_MergesOverBuiltin(t *testing.T) {
	f, err := ParseFile([]byte(extensionYAML))
	require.NoError(t, err)

	r, err := f.Resolver()
	require.NoError(t, err)

	id, err := r.Resolve("Republic of Somaliland")
	require.NoError(t, err)
	assert.Equal(t, "SLX", id.ISO3)

	civ, err := r.ResolveISO3("CIV")
	require.NoError(t, err)
	assert.Equal(t, "Côte d'Ivoire", civ.Name)

	// built-in rows and overrides survive
	nga, err := r.Resolve("Nigeria")
	require.NoError(t, err)
	assert.Equal(t, "NGA", nga.ISO3)
	_, err = r.Resolve("US")
	assert.NoError(t, err)

	assert.Len(t, r.Members(Africa), len(Default().Members(Africa))+1)
}

func TestParseFile_Replace(t *testing.T) {
	f, err := ParseFile([]byte(`
replace: true
countries:
  - {name: Nigeria, iso3: NGA, continent: Africa, region: Western Africa}
`))
	require.NoError(t, err)
	r, err := f.Resolver()
	require.NoError(t, err)

	assert.Len(t, r.Members(Africa), 1)
	_, err = r.Resolve("Kenya")
	assert.True(t, errors.Is(err, contracts.ErrUnresolvedIdentity))
}

func TestParseFile_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{"unknown field", "countries: []\ncontry: x\n", ""},
		{"bad iso3", "countries:\n  - {name: X, iso3: XX, continent: Africa}\n", "countries[0].iso3"},
		{"missing name", "countries:\n  - {iso3: XXX, continent: Africa}\n", "countries[0].name"},
		{"missing continent", "countries:\n  - {name: X, iso3: XXX}\n", "countries[0].continent"},
		{"empty replace", "replace: true\n", "countries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile([]byte(tt.yaml))
			require.Error(t, err)
			if tt.field != "" {
				var ve ValidationError
				require.True(t, errors.As(err, &ve), err.Error())
				assert.Equal(t, tt.field, ve.Field)
			}
		})
	}
}

func TestParseFile_UnknownOverrideTarget(t *testing.T) {
	f, err := ParseFile([]byte("overrides:\n  Narnia: Atlantis\n"))
	require.NoError(t, err)
	_, err = f.Resolver()
	assert.ErrorContains(t, err, "not registered")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(extensionYAML), 0o600))

	r, hash, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	_, hash2, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, hash, hash2, "hash must be deterministic")

	_, err = r.ResolveISO3("SLX")
	assert.NoError(t, err)

	_, _, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
