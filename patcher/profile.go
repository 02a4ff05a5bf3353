package patcher

import (
	"fmt"
	"sort"
	"strings"
)

// Profile is a named rule set with its architecture list and deployment
// target. Each profile matches one released revision of the tool.
type Profile struct {
	Name             string
	Archs            []string
	DeploymentTarget string
	Rules            []string
	Match            MatchMode
}

const DefaultProfile = "xbar"

var profiles = map[string]Profile{
	"xbar": {
		Name:             "xbar",
		Archs:            []string{"arm64", "arm64e", "armv7", "armv7s", "armv6", "armv8"},
		DeploymentTarget: "11.0",
		Rules: []string{
			RuleStripValidArchs,
			RuleNormalizeArchStandard,
			RuleExcludeArchs,
			RulePinDeploymentTarget,
		},
		Match: MatchSubstring,
	},
	"carthage-fix": {
		Name:  "carthage-fix",
		Archs: []string{"armv7", "i386"},
		Rules: []string{
			RuleRemoveValidArch,
			RuleNormalizeArchStandard,
			RuleExcludeArchs,
		},
		Match: MatchSubstring,
	},
}

func LookupProfile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	profile, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown profile %q (known: %s)", name, strings.Join(ProfileNames(), ", "))
	}
	// callers may modify the slices
	profile.Archs = append([]string(nil), profile.Archs...)
	profile.Rules = append([]string(nil), profile.Rules...)
	return profile, nil
}

func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Profile) Params() Params {
	return Params{
		Archs:            p.Archs,
		DeploymentTarget: p.DeploymentTarget,
		Match:            p.Match,
	}
}
