// Package buildconfig reads the optional per-source build manifest
// (SPEC_FULL.md §B.3): a "<stem>.ziget.yaml" file sitting beside a
// ".zg" source file that overrides codegen defaults such as the
// target triple baked into the emitted IR's module preamble.
package buildconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the knobs a manifest may override. Zero values mean
// "use the default" — a missing manifest file is not an error.
type Config struct {
	TargetTriple string `yaml:"target_triple"`
}

// DefaultTargetTriple is used when no manifest is present or the
// manifest leaves target_triple blank.
const DefaultTargetTriple = "x86_64-unknown-linux-gnu"

// Default returns a Config with every field at its default value.
func Default() Config {
	return Config{TargetTriple: DefaultTargetTriple}
}

// Load reads the manifest at path, if it exists, and overlays it onto
// Default(). A missing file is not an error — it returns the defaults
// unchanged, the way an absent config is treated throughout the
// driver's pipeline (spec.md §6 names the manifest as optional).
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, err
	}
	if overlay.TargetTriple != "" {
		cfg.TargetTriple = overlay.TargetTriple
	}
	return cfg, nil
}
