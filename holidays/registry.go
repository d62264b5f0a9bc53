package holidays

import (
	"fmt"
	"strings"

	"github.com/warp/leave-register/generic"
)

var builtins = map[string]func() *Table{
	"ES":    SpainNational,
	"ES-MD": SpainMadrid,
}

// Builtin returns a compiled-in table by region code ("ES", "ES-MD").
// Codes are case-insensitive.
func Builtin(region string) (*Table, error) {
	build, ok := builtins[strings.ToUpper(region)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown holiday region %q", generic.ErrInvalidInput, region)
	}
	return build(), nil
}

// Resolve picks the ruleset for a deployment: a YAML file wins over the
// built-in region code.
func Resolve(region, file string) (Ruleset, error) {
	if file != "" {
		return LoadTableFile(file)
	}
	if region == "" {
		region = DefaultRegion
	}
	return Builtin(region)
}

// RegionCode joins a country and an optional subdivision, e.g. ("ES","MD").
func RegionCode(country, subdivision string) string {
	if subdivision == "" {
		return strings.ToUpper(country)
	}
	return strings.ToUpper(country + "-" + subdivision)
}
