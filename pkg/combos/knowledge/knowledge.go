// Package knowledge loads the external rule base used to explain
// discrepancies: band restriction rules and carrier policy requirements kept
// in versioned YAML files. The rules provide context for reasoning, never
// filtering — loading them alters no analysis result, only its explanations.
package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"combocheck/pkg/combos"
)

// Restriction categories used by the rule files. Anything else is accepted
// and falls through conservatively in severity mapping.
const (
	RestrictionRegional   = "regional"
	RestrictionRegulatory = "regulatory"
	RestrictionHWVariant  = "hw_variant"
	RestrictionCarrier    = "carrier"
)

// BandRestriction explains why a whole band is limited. An empty region list
// means the rule applies everywhere.
type BandRestriction struct {
	Band       int
	Category   string
	Regions    []string
	Reason     string
	SourceFile string
}

// AppliesTo reports whether the restriction is in scope for the region. A
// scope-less rule always applies; an unset region matches every rule.
func (r BandRestriction) AppliesTo(region string) bool {
	if len(r.Regions) == 0 || region == "" {
		return true
	}
	for _, candidate := range r.Regions {
		if strings.EqualFold(candidate, region) {
			return true
		}
	}
	return false
}

// ComboRestriction explains why one specific combination is limited.
type ComboRestriction struct {
	Key        string
	Category   string
	Reason     string
	SourceFile string
}

// CarrierPolicy captures one carrier's combination requirements.
type CarrierPolicy struct {
	Name       string
	Required   map[string]bool
	Optional   map[string]bool
	Excluded   map[string]bool
	Notes      map[string]string
	SourceFile string
}

// Context is the loaded, indexed rule base plus the active filtering scope.
type Context struct {
	Region string
	Policy string

	BandRestrictions  map[int][]BandRestriction
	ComboRestrictions map[string][]ComboRestriction
	Policies          map[string]CarrierPolicy

	Warnings []string
}

// NewContext returns an empty context for the given scope. Reasoning against
// an empty context degrades to "no explanation found" for everything.
func NewContext(region, policy string) *Context {
	return &Context{
		Region:            region,
		Policy:            policy,
		BandRestrictions:  make(map[int][]BandRestriction),
		ComboRestrictions: make(map[string][]ComboRestriction),
		Policies:          make(map[string]CarrierPolicy),
	}
}

// ActivePolicy returns the policy selected by the context scope, if loaded.
func (c *Context) ActivePolicy() (CarrierPolicy, bool) {
	if c.Policy == "" {
		return CarrierPolicy{}, false
	}
	policy, ok := c.Policies[strings.ToLower(c.Policy)]
	return policy, ok
}

func (c *Context) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// restrictionFile is the schema of a band-restriction rule file.
type restrictionFile struct {
	Version         int    `yaml:"version" validate:"required,min=1"`
	RestrictionType string `yaml:"restriction_type"`
	Region          string `yaml:"region"`

	BandRestrictions []struct {
		Band            int      `yaml:"band" validate:"required,min=1"`
		RestrictionType string   `yaml:"restriction_type"`
		Regions         []string `yaml:"regions"`
		Reason          string   `yaml:"reason"`
	} `yaml:"band_restrictions" validate:"dive"`

	ComboRestrictions []struct {
		Combo           string `yaml:"combo" validate:"required"`
		RestrictionType string `yaml:"restriction_type"`
		Reason          string `yaml:"reason"`
	} `yaml:"combo_restrictions" validate:"dive"`
}

// policyFile is the schema of a carrier-policy rule file.
type policyFile struct {
	Version        int               `yaml:"version" validate:"required,min=1"`
	Carrier        string            `yaml:"carrier" validate:"required"`
	RequiredCombos []string          `yaml:"required_combos"`
	OptionalCombos []string          `yaml:"optional_combos"`
	ExcludedCombos []string          `yaml:"excluded_combos"`
	ComboNotes     map[string]string `yaml:"combo_notes"`
}

// Load reads every rule file under dir and returns the indexed context.
// Restriction rules out of scope for the region are dropped; policy files
// not matching the policy name are skipped, except the "generic" policy
// which always loads. A malformed rule file is skipped with a warning, never
// a failure — the context it would have contributed is simply absent.
func Load(dir, region, policy string) *Context {
	ctx := NewContext(region, policy)
	validate := validator.New()

	if dir == "" {
		return ctx
	}
	if _, err := os.Stat(dir); err != nil {
		ctx.warnf("knowledge: rule directory %s not readable: %v", dir, err)
		return ctx
	}

	for _, path := range ruleFiles(filepath.Join(dir, "band_restrictions")) {
		if err := loadRestrictionFile(ctx, validate, path); err != nil {
			ctx.warnf("knowledge: %v: %s: %v", combos.ErrRuleLoad, path, err)
		}
	}
	for _, path := range ruleFiles(filepath.Join(dir, "carrier_policies")) {
		if policy != "" {
			stem := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
			if !strings.Contains(stem, strings.ToLower(policy)) && stem != "generic" {
				continue
			}
		}
		if err := loadPolicyFile(ctx, validate, path); err != nil {
			ctx.warnf("knowledge: %v: %s: %v", combos.ErrRuleLoad, path, err)
		}
	}

	return ctx
}

func ruleFiles(dir string) []string {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	return paths
}

func loadRestrictionFile(ctx *Context, validate *validator.Validate, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var file restrictionFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	name := filepath.Base(path)
	for _, rule := range file.BandRestrictions {
		restriction := BandRestriction{
			Band:       rule.Band,
			Category:   firstNonEmpty(rule.RestrictionType, file.RestrictionType, RestrictionRegional),
			Regions:    rule.Regions,
			Reason:     rule.Reason,
			SourceFile: name,
		}
		if len(restriction.Regions) == 0 && file.Region != "" {
			restriction.Regions = []string{file.Region}
		}
		if !restriction.AppliesTo(ctx.Region) {
			continue
		}
		ctx.BandRestrictions[rule.Band] = append(ctx.BandRestrictions[rule.Band], restriction)
	}

	for _, rule := range file.ComboRestrictions {
		key := normalizeRuleKey(rule.Combo)
		if key == "" {
			continue
		}
		ctx.ComboRestrictions[key] = append(ctx.ComboRestrictions[key], ComboRestriction{
			Key:        key,
			Category:   firstNonEmpty(rule.RestrictionType, file.RestrictionType, RestrictionRegional),
			Reason:     rule.Reason,
			SourceFile: name,
		})
	}

	return nil
}

func loadPolicyFile(ctx *Context, validate *validator.Validate, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var file policyFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	policy := CarrierPolicy{
		Name:       file.Carrier,
		Required:   normalizeRuleKeySet(file.RequiredCombos),
		Optional:   normalizeRuleKeySet(file.OptionalCombos),
		Excluded:   normalizeRuleKeySet(file.ExcludedCombos),
		Notes:      make(map[string]string, len(file.ComboNotes)),
		SourceFile: filepath.Base(path),
	}
	for key, note := range file.ComboNotes {
		policy.Notes[normalizeRuleKey(key)] = note
	}

	ctx.Policies[strings.ToLower(file.Carrier)] = policy
	return nil
}

// normalizeRuleKey canonicalizes a combination key as written in a rule file
// so it matches the normalized keys the analyzer produces. Rule authors use
// looser spellings ("B1A+B3A", "66a_n77a") than the canonical form.
func normalizeRuleKey(raw string) string {
	raw = strings.NewReplacer("_", "-", "+", "-", " ", "").Replace(strings.TrimSpace(raw))
	components := combos.ParseComponents(raw)
	if len(components) == 0 {
		return ""
	}
	return combos.Combo{Components: components}.Key()
}

func normalizeRuleKeySet(raws []string) map[string]bool {
	set := make(map[string]bool, len(raws))
	for _, raw := range raws {
		if key := normalizeRuleKey(raw); key != "" {
			set[key] = true
		}
	}
	return set
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
