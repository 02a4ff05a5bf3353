package patcher

import (
	"fmt"
	"sort"
	"strings"
)

const (
	KeyValidArchs       = "VALID_ARCHS"
	KeyExcludedArchs    = "EXCLUDED_ARCHS"
	KeyDeploymentTarget = "IPHONEOS_DEPLOYMENT_TARGET"

	ArchsStandard64 = "$(ARCHS_STANDARD_64_BIT)"
)

// LegacyArchStandards are VALID_ARCHS macros that newer toolchains reject.
var LegacyArchStandards = []string{"$(ARCHS_STANDARD)", "$(ARCHS_STANDARD_INCLUDING_64_BIT)"}

const (
	RuleStripValidArchs       = "strip-valid-archs"
	RuleRemoveValidArch       = "remove-valid-arch"
	RuleNormalizeArchStandard = "normalize-arch-standard"
	RuleExcludeArchs          = "exclude-archs"
	RuleExcludeArchsIfPresent = "exclude-archs-if-present"
	RulePinDeploymentTarget   = "pin-deployment-target"
)

// Settings is the string view of one build configuration. A missing key is
// an absent setting.
type Settings map[string]string

func (s Settings) Clone() Settings {
	c := make(Settings, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Change records one rewritten key.
type Change struct {
	Rule    string
	Key     string
	Old     string
	New     string
	Existed bool
}

type MatchMode string

const (
	// MatchSubstring treats an architecture as excluded when its identifier
	// occurs anywhere in the value, so "armv7s" also satisfies "armv7".
	MatchSubstring MatchMode = "substring"
	// MatchToken compares whitespace separated identifiers.
	MatchToken MatchMode = "token"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(s)) {
	case "", MatchSubstring:
		return MatchSubstring, nil
	case MatchToken:
		return MatchToken, nil
	}
	return "", fmt.Errorf("unknown match mode %q (want %s or %s)", s, MatchSubstring, MatchToken)
}

// Params are the run-wide inputs shared by all rules.
type Params struct {
	Archs            []string
	DeploymentTarget string
	Match            MatchMode
}

func (p Params) contains(value, arch string) bool {
	if p.Match == MatchToken {
		for _, field := range strings.Fields(value) {
			if field == arch {
				return true
			}
		}
		return false
	}
	return strings.Contains(value, arch)
}

type RuleFunc func(s Settings, p Params) []Change

type Rule struct {
	Name        string
	Description string
	Apply       RuleFunc
}

var registry = map[string]Rule{
	RuleStripValidArchs: {
		Name:        RuleStripValidArchs,
		Description: "clear a non-empty VALID_ARCHS",
		Apply:       stripValidArchs,
	},
	RuleRemoveValidArch: {
		Name:        RuleRemoveValidArch,
		Description: "remove each architecture from VALID_ARCHS",
		Apply:       removeValidArch,
	},
	RuleNormalizeArchStandard: {
		Name:        RuleNormalizeArchStandard,
		Description: "replace legacy $(ARCHS_STANDARD...) values with " + ArchsStandard64,
		Apply:       normalizeArchStandard,
	},
	RuleExcludeArchs: {
		Name:        RuleExcludeArchs,
		Description: "add each architecture to EXCLUDED_ARCHS",
		Apply:       excludeArchs(false),
	},
	RuleExcludeArchsIfPresent: {
		Name:        RuleExcludeArchsIfPresent,
		Description: "add each architecture to an existing EXCLUDED_ARCHS",
		Apply:       excludeArchs(true),
	},
	RulePinDeploymentTarget: {
		Name:        RulePinDeploymentTarget,
		Description: "set an existing IPHONEOS_DEPLOYMENT_TARGET to the target version",
		Apply:       pinDeploymentTarget,
	},
}

func LookupRule(name string) (Rule, error) {
	rule, ok := registry[name]
	if !ok {
		return Rule{}, fmt.Errorf("unknown rule %q (known: %s)", name, strings.Join(RuleNames(), ", "))
	}
	return rule, nil
}

// Rules resolves names in order.
func Rules(names []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		rule, err := LookupRule(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func RuleNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func set(s Settings, rule, key, value string) Change {
	old, existed := s[key]
	s[key] = value
	return Change{Rule: rule, Key: key, Old: old, New: value, Existed: existed}
}

func stripValidArchs(s Settings, _ Params) []Change {
	if v, ok := s[KeyValidArchs]; ok && v != "" {
		return []Change{set(s, RuleStripValidArchs, KeyValidArchs, "")}
	}
	return nil
}

func removeValidArch(s Settings, p Params) []Change {
	v, ok := s[KeyValidArchs]
	if !ok {
		return nil
	}
	updated := v
	for _, arch := range p.Archs {
		if p.Match == MatchToken {
			fields := strings.Fields(updated)
			kept := fields[:0]
			for _, f := range fields {
				if f != arch {
					kept = append(kept, f)
				}
			}
			if len(kept) != len(strings.Fields(updated)) {
				updated = strings.Join(kept, " ")
			}
			continue
		}
		updated = strings.ReplaceAll(updated, arch+" ", "")
	}
	if updated == v {
		return nil
	}
	return []Change{set(s, RuleRemoveValidArch, KeyValidArchs, updated)}
}

func normalizeArchStandard(s Settings, _ Params) []Change {
	v, ok := s[KeyValidArchs]
	if !ok {
		return nil
	}
	for _, legacy := range LegacyArchStandards {
		if strings.Contains(v, legacy) {
			return []Change{set(s, RuleNormalizeArchStandard, KeyValidArchs, ArchsStandard64)}
		}
	}
	return nil
}

func excludeArchs(onlyIfPresent bool) RuleFunc {
	name := RuleExcludeArchs
	if onlyIfPresent {
		name = RuleExcludeArchsIfPresent
	}
	return func(s Settings, p Params) []Change {
		v, ok := s[KeyExcludedArchs]
		if !ok && onlyIfPresent {
			return nil
		}
		updated := v
		for _, arch := range p.Archs {
			if p.contains(updated, arch) {
				continue
			}
			if strings.TrimSpace(updated) == "" {
				updated = arch
			} else {
				updated += " " + arch
			}
		}
		if ok && updated == v {
			return nil
		}
		if !ok && updated == "" {
			return nil
		}
		return []Change{set(s, name, KeyExcludedArchs, updated)}
	}
}

func pinDeploymentTarget(s Settings, p Params) []Change {
	if p.DeploymentTarget == "" {
		return nil
	}
	if v, ok := s[KeyDeploymentTarget]; ok && v != p.DeploymentTarget {
		return []Change{set(s, RulePinDeploymentTarget, KeyDeploymentTarget, p.DeploymentTarget)}
	}
	return nil
}

// Result is the outcome of evaluating a rule list against one configuration.
type Result struct {
	Settings Settings
	Changes  []Change
}

func (r Result) Changed() bool {
	return len(r.Changes) > 0
}

// Evaluate applies rules in order to a copy of in. It has no side effects.
func Evaluate(rules []Rule, params Params, in Settings) Result {
	s := in.Clone()
	var changes []Change
	for _, rule := range rules {
		changes = append(changes, rule.Apply(s, params)...)
	}
	return Result{Settings: s, Changes: changes}
}
