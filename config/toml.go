/*
Package config reads command line defaults from a TOML file.

Top-level keys apply to flags of any command; a table named after a command
applies to that command only and wins over top-level keys:

	log_level = "debug"

	[serve]
	listen = ":9000"
	cache_version = "pixelgrid-cache-v2"

Keys use the flag name with dashes replaced by underscores.
*/
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
)

// TOML is a kong.ConfigurationLoader.
func TOML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if _, err := toml.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("could not parse configuration: %w", err)
	}

	var f kong.ResolverFunc = func(kctx *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		key := strings.ReplaceAll(flag.Name, "-", "_")

		if parent != nil && parent.Command != nil {
			if table, ok := values[parent.Command.Name].(map[string]any); ok {
				if raw, ok := table[key]; ok {
					return scalar(flag.Name, raw)
				}
			}
		}

		if raw, ok := values[key]; ok {
			if _, isTable := raw.(map[string]any); !isTable {
				return scalar(flag.Name, raw)
			}
		}
		return nil, nil
	}
	return f, nil
}

// scalar hands values to kong as strings, which every mapper accepts.
func scalar(name string, raw any) (any, error) {
	switch v := raw.(type) {
	case string, bool, int64, float64:
		return fmt.Sprint(v), nil
	default:
		return nil, fmt.Errorf("configuration key %q: unsupported value %v", name, raw)
	}
}
