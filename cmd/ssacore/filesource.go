// fileSource is the minimal concrete ports.ElementSetSource the CLI wires
// in: a local TOML file of element sets, read via viper the same way
// cmd/mission/main.go reads a scenario file. Credential-based fetching of a
// remote catalog is explicitly out of scope (spec.md §1); this keeps the
// CLI usable standalone against a file the operator maintains by hand.
package main

import (
	"context"

	"github.com/spf13/viper"

	"github.com/ssacore/conjunction/ports"
)

type rawEntry struct {
	CatalogID uint32   `mapstructure:"catalog_id"`
	Name      string   `mapstructure:"name"`
	Line1     string   `mapstructure:"line1"`
	Line2     string   `mapstructure:"line2"`
	Tags      []string `mapstructure:"tags"`
}

type fileSource struct {
	path string
}

func newFileSource(path string) *fileSource {
	return &fileSource{path: path}
}

// Fetch reads the catalog TOML file's top-level "elements" array of tables.
func (f *fileSource) Fetch(ctx context.Context) ([]ports.RawElementSet, error) {
	v := viper.New()
	v.SetConfigFile(f.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var raws []rawEntry
	if err := v.UnmarshalKey("elements", &raws); err != nil {
		return nil, err
	}
	out := make([]ports.RawElementSet, 0, len(raws))
	for _, r := range raws {
		out = append(out, ports.RawElementSet{
			CatalogID: r.CatalogID,
			Name:      r.Name,
			Line1:     r.Line1,
			Line2:     r.Line2,
			Tags:      r.Tags,
		})
	}
	return out, nil
}
