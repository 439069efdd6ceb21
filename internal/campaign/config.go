// Package campaign wires variations, sampling, materialization, and
// sensitivity analysis into campaign-level operations, with YAML
// configuration at the composition root.
package campaign

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sweepcore/pkg/domain"
)

// DistributionConfig selects a continuous distribution in configuration.
type DistributionConfig struct {
	Kind  string  `yaml:"kind"` // uniform | normal | lognormal
	Min   float64 `yaml:"min,omitempty"`
	Max   float64 `yaml:"max,omitempty"`
	Mu    float64 `yaml:"mu,omitempty"`
	Sigma float64 `yaml:"sigma,omitempty"`
}

// Build resolves the configuration into a quantile-capable distribution.
func (c DistributionConfig) Build() (domain.Distribution, error) {
	switch c.Kind {
	case "uniform":
		return uniformDist(c.Min, c.Max), nil
	case "normal":
		return normalDist(c.Mu, c.Sigma), nil
	case "lognormal":
		return logNormalDist(c.Mu, c.Sigma), nil
	default:
		return nil, fmt.Errorf("unknown distribution kind %q", c.Kind)
	}
}

// MemberConfig is one target of a correlated variation group.
type MemberConfig struct {
	Location     string              `yaml:"location"`
	Path         string              `yaml:"path"`
	Values       []any               `yaml:"values,omitempty"`
	Distribution *DistributionConfig `yaml:"distribution,omitempty"`
	Flip         bool                `yaml:"flip,omitempty"`
}

// VariationConfig is one user-specified variation: a discrete value list, a
// continuous distribution, or a correlated group of either.
type VariationConfig struct {
	Location     string              `yaml:"location,omitempty"`
	Path         string              `yaml:"path,omitempty"`
	Values       []any               `yaml:"values,omitempty"`
	Distribution *DistributionConfig `yaml:"distribution,omitempty"`
	Flip         bool                `yaml:"flip,omitempty"`
	Members      []MemberConfig      `yaml:"members,omitempty"`
}

// Config is a campaign configuration document.
type Config struct {
	Folder     string                    `yaml:"folder"`
	Variations []VariationConfig         `yaml:"variations"`
	Defaults   map[string]map[string]any `yaml:"defaults,omitempty"`
}

// LoadConfig reads and decodes a campaign configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read campaign config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode campaign config: %w", err)
	}
	if cfg.Folder == "" {
		return nil, fmt.Errorf("campaign config missing folder")
	}
	return &cfg, nil
}

// ParseVariations converts the configured variations into their latent normal
// form, rejecting duplicate targets.
func (c *Config) ParseVariations() (*domain.ParsedVariations, error) {
	var out []domain.LatentVariation
	for i, vc := range c.Variations {
		lv, err := vc.build()
		if err != nil {
			return nil, fmt.Errorf("variation %d: %w", i, err)
		}
		out = append(out, lv)
	}
	return domain.NewParsedVariations(out...)
}

func (vc VariationConfig) build() (domain.LatentVariation, error) {
	if len(vc.Members) > 0 {
		return vc.buildGroup()
	}
	loc, err := domain.ParseLocation(vc.Location)
	if err != nil {
		return domain.LatentVariation{}, err
	}
	target := domain.NewTarget(loc, vc.Path)
	if len(vc.Values) > 0 {
		values, err := valuesFromAny(vc.Values)
		if err != nil {
			return domain.LatentVariation{}, err
		}
		return domain.NewDiscreteVariation(target, values)
	}
	if vc.Distribution != nil {
		dist, err := vc.Distribution.Build()
		if err != nil {
			return domain.LatentVariation{}, err
		}
		return domain.NewDistributedVariation(target, dist, vc.Flip)
	}
	return domain.LatentVariation{}, fmt.Errorf("variation for %s has neither values nor a distribution", target)
}

func (vc VariationConfig) buildGroup() (domain.LatentVariation, error) {
	discrete := len(vc.Members[0].Values) > 0
	if discrete {
		targets := make([]domain.TargetParameter, len(vc.Members))
		sets := make([][]domain.Value, len(vc.Members))
		for i, m := range vc.Members {
			loc, err := domain.ParseLocation(m.Location)
			if err != nil {
				return domain.LatentVariation{}, err
			}
			targets[i] = domain.NewTarget(loc, m.Path)
			values, err := valuesFromAny(m.Values)
			if err != nil {
				return domain.LatentVariation{}, err
			}
			sets[i] = values
		}
		return domain.NewCorrelatedDiscreteVariation(targets, sets)
	}
	members := make([]domain.DistributedMember, len(vc.Members))
	for i, m := range vc.Members {
		loc, err := domain.ParseLocation(m.Location)
		if err != nil {
			return domain.LatentVariation{}, err
		}
		if m.Distribution == nil {
			return domain.LatentVariation{}, fmt.Errorf("group member %s/%s has neither values nor a distribution", m.Location, m.Path)
		}
		dist, err := m.Distribution.Build()
		if err != nil {
			return domain.LatentVariation{}, err
		}
		members[i] = domain.DistributedMember{Target: domain.NewTarget(loc, m.Path), Dist: dist, Flip: m.Flip}
	}
	return domain.NewCorrelatedDistributedVariation(members)
}

func valuesFromAny(in []any) ([]domain.Value, error) {
	out := make([]domain.Value, len(in))
	for i, raw := range in {
		v, err := valueFromAny(raw)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func valueFromAny(raw any) (domain.Value, error) {
	switch v := raw.(type) {
	case bool:
		return domain.Bool(v), nil
	case int:
		return domain.Int(int64(v)), nil
	case int64:
		return domain.Int(v), nil
	case float64:
		return domain.Float(v), nil
	case string:
		return domain.Str(v), nil
	default:
		return domain.Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// StaticDefaults is a DefaultSource backed by the campaign configuration's
// defaults section.
type StaticDefaults map[domain.Location]map[string]domain.Value

var _ domain.DefaultSource = StaticDefaults{}

// BuildDefaults resolves the configuration's defaults section.
func (c *Config) BuildDefaults() (StaticDefaults, error) {
	out := make(StaticDefaults)
	for locName, paths := range c.Defaults {
		loc, err := domain.ParseLocation(locName)
		if err != nil {
			return nil, err
		}
		m := make(map[string]domain.Value, len(paths))
		for path, raw := range paths {
			v, err := valueFromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("default %s/%s: %w", locName, path, err)
			}
			m[path] = v
		}
		out[loc] = m
	}
	return out, nil
}

// DefaultValue looks up a target's configured base value.
func (d StaticDefaults) DefaultValue(_ context.Context, loc domain.Location, _ string, path string) (domain.Value, error) {
	if m, ok := d[loc]; ok {
		if v, ok := m[path]; ok {
			return v, nil
		}
	}
	return domain.Value{}, fmt.Errorf("no default for %s/%s", loc, path)
}
