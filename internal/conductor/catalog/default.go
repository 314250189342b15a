package catalog

import (
	_ "embed"
)

//go:embed default.yaml
var defaultCatalog []byte

// Default returns the built-in demo catalog.
func Default() *Catalog {
	cat, err := Parse(defaultCatalog)
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	return cat
}
