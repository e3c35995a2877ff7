package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed fault_profile.cue
var profileSchema string

// FaultProfile tunes the synthetic fault injector for replay mode.
// Profiles are loaded from YAML and validated against the embedded
// CUE schema before they take effect.
type FaultProfile struct {
	Enabled      bool     `yaml:"enabled"`
	EveryN       int      `yaml:"every_n"`
	Probability  float64  `yaml:"probability"`
	Statuses     []string `yaml:"statuses"`
	LatencyMinMS int      `yaml:"latency_min_ms"`
	LatencyMaxMS int      `yaml:"latency_max_ms"`
}

// LoadProfile reads a YAML fault profile, validates it against the
// schema and merges it over base. Keys absent from the file keep the
// base values, so a profile can override a single knob.
func LoadProfile(path string, base FaultProfile) (FaultProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read fault profile: %w", err)
	}
	if err := validateProfile(path, data); err != nil {
		return base, err
	}
	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return base, fmt.Errorf("unmarshal fault profile: %w", err)
	}
	if len(p.Statuses) == 0 {
		p.Statuses = base.Statuses
	}
	if p.LatencyMaxMS < p.LatencyMinMS {
		return base, fmt.Errorf("fault profile: latency_max_ms %d below latency_min_ms %d", p.LatencyMaxMS, p.LatencyMinMS)
	}
	return p, nil
}

// validateProfile checks the raw YAML against the closed #FaultProfile
// definition, rejecting unknown keys and out-of-range values.
func validateProfile(path string, data []byte) error {
	cuectx := cuecontext.New()
	schema := cuectx.CompileString(profileSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile profile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#FaultProfile"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup profile schema: %w", err)
	}
	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return fmt.Errorf("parse fault profile: %w", err)
	}
	val := cuectx.BuildFile(file)
	if err := val.Err(); err != nil {
		return fmt.Errorf("build fault profile: %w", err)
	}
	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("fault profile rejected by schema: %w", err)
	}
	return nil
}
