package patcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRules(t *testing.T, names ...string) []Rule {
	t.Helper()
	rules, err := Rules(names)
	require.NoError(t, err)
	return rules
}

func TestEvaluate_RemoveValidArch(t *testing.T) {
	rules := mustRules(t, RuleRemoveValidArch)
	params := Params{Archs: []string{"armv7", "i386"}}

	res := Evaluate(rules, params, Settings{KeyValidArchs: "armv7 arm64 "})
	require.True(t, res.Changed())
	assert.Equal(t, "arm64 ", res.Settings[KeyValidArchs])
	assert.Equal(t, []Change{{
		Rule: RuleRemoveValidArch, Key: KeyValidArchs, Old: "armv7 arm64 ", New: "arm64 ", Existed: true,
	}}, res.Changes)

	// trailing identifier without a following space stays
	res = Evaluate(rules, params, Settings{KeyValidArchs: "arm64 armv7"})
	assert.False(t, res.Changed())

	res = Evaluate(rules, params, Settings{})
	assert.False(t, res.Changed())
	_, ok := res.Settings[KeyValidArchs]
	assert.False(t, ok)
}

func TestEvaluate_RemoveValidArchTokenMode(t *testing.T) {
	rules := mustRules(t, RuleRemoveValidArch)
	params := Params{Archs: []string{"armv7"}, Match: MatchToken}

	res := Evaluate(rules, params, Settings{KeyValidArchs: "arm64 armv7 armv7s"})
	assert.Equal(t, "arm64 armv7s", res.Settings[KeyValidArchs])
}

func TestEvaluate_ExcludeArchs(t *testing.T) {
	params := Params{Archs: []string{"armv7", "i386"}}

	t.Run("absent key is created", func(t *testing.T) {
		res := Evaluate(mustRules(t, RuleExcludeArchs), params, Settings{})
		require.True(t, res.Changed())
		assert.Equal(t, "armv7 i386", res.Settings[KeyExcludedArchs])
		assert.False(t, res.Changes[0].Existed)
	})

	t.Run("existing value is appended to", func(t *testing.T) {
		res := Evaluate(mustRules(t, RuleExcludeArchs), params, Settings{KeyExcludedArchs: "x86_64"})
		assert.Equal(t, "x86_64 armv7 i386", res.Settings[KeyExcludedArchs])
	})

	t.Run("empty value is replaced", func(t *testing.T) {
		res := Evaluate(mustRules(t, RuleExcludeArchs), params, Settings{KeyExcludedArchs: ""})
		assert.Equal(t, "armv7 i386", res.Settings[KeyExcludedArchs])
	})

	t.Run("if-present skips absent key", func(t *testing.T) {
		res := Evaluate(mustRules(t, RuleExcludeArchsIfPresent), params, Settings{})
		assert.False(t, res.Changed())
		_, ok := res.Settings[KeyExcludedArchs]
		assert.False(t, ok)
	})

	t.Run("if-present appends to existing key", func(t *testing.T) {
		res := Evaluate(mustRules(t, RuleExcludeArchsIfPresent), params, Settings{KeyExcludedArchs: "i386"})
		assert.Equal(t, "i386 armv7", res.Settings[KeyExcludedArchs])
	})
}

func TestEvaluate_SubstringMatchTreatsPrefixAsPresent(t *testing.T) {
	rules := mustRules(t, RuleExcludeArchs)
	in := Settings{KeyExcludedArchs: "armv7s"}

	// known weak check, kept on purpose: armv7s counts as armv7
	res := Evaluate(rules, Params{Archs: []string{"armv7"}}, in)
	assert.False(t, res.Changed())
	assert.Equal(t, "armv7s", res.Settings[KeyExcludedArchs])

	res = Evaluate(rules, Params{Archs: []string{"armv7"}, Match: MatchToken}, in)
	assert.Equal(t, "armv7s armv7", res.Settings[KeyExcludedArchs])
}

func TestEvaluate_NormalizeAndStrip(t *testing.T) {
	for _, legacy := range LegacyArchStandards {
		res := Evaluate(mustRules(t, RuleNormalizeArchStandard), Params{}, Settings{KeyValidArchs: legacy})
		assert.Equal(t, ArchsStandard64, res.Settings[KeyValidArchs], legacy)
	}

	res := Evaluate(mustRules(t, RuleNormalizeArchStandard), Params{}, Settings{KeyValidArchs: ArchsStandard64})
	assert.False(t, res.Changed())

	res = Evaluate(mustRules(t, RuleStripValidArchs), Params{}, Settings{KeyValidArchs: "arm64 armv7"})
	assert.Equal(t, "", res.Settings[KeyValidArchs])

	res = Evaluate(mustRules(t, RuleStripValidArchs), Params{}, Settings{KeyValidArchs: ""})
	assert.False(t, res.Changed())
}

func TestEvaluate_PinDeploymentTarget(t *testing.T) {
	rules := mustRules(t, RulePinDeploymentTarget)
	params := Params{DeploymentTarget: "11.0"}

	res := Evaluate(rules, params, Settings{KeyDeploymentTarget: "9.0"})
	assert.Equal(t, "11.0", res.Settings[KeyDeploymentTarget])

	res = Evaluate(rules, params, Settings{KeyDeploymentTarget: "11.0"})
	assert.False(t, res.Changed())

	res = Evaluate(rules, params, Settings{})
	assert.False(t, res.Changed())

	res = Evaluate(rules, Params{}, Settings{KeyDeploymentTarget: "9.0"})
	assert.False(t, res.Changed())
}

func TestEvaluate_DoesNotModifyInput(t *testing.T) {
	in := Settings{KeyValidArchs: "armv7 arm64 "}
	_ = Evaluate(mustRules(t, RuleStripValidArchs), Params{}, in)
	assert.Equal(t, "armv7 arm64 ", in[KeyValidArchs])
}

func TestEvaluate_ProfilesAreIdempotent(t *testing.T) {
	inputs := []Settings{
		{},
		{KeyValidArchs: "armv7 arm64 ", KeyDeploymentTarget: "9.0"},
		{KeyValidArchs: "$(ARCHS_STANDARD)", KeyExcludedArchs: "i386"},
		{KeyValidArchs: "armv7 armv7 i386 arm64 ", KeyExcludedArchs: ""},
		{KeyExcludedArchs: "armv7s", KeyDeploymentTarget: "12.0"},
	}
	for _, name := range ProfileNames() {
		profile, err := LookupProfile(name)
		require.NoError(t, err)
		rules := mustRules(t, profile.Rules...)
		for _, in := range inputs {
			once := Evaluate(rules, profile.Params(), in)
			twice := Evaluate(rules, profile.Params(), once.Settings)
			assert.False(t, twice.Changed(), "profile %s input %v: %v", name, in, twice.Changes)
			assert.Equal(t, once.Settings, twice.Settings)
		}
	}
}

func TestEvaluate_ProfilesExcludeEveryArch(t *testing.T) {
	inputs := []Settings{
		{},
		{KeyValidArchs: "armv7 arm64 "},
		{KeyExcludedArchs: "x86_64"},
	}
	for _, name := range ProfileNames() {
		profile, err := LookupProfile(name)
		require.NoError(t, err)
		rules := mustRules(t, profile.Rules...)
		for _, in := range inputs {
			res := Evaluate(rules, profile.Params(), in)
			excluded, ok := res.Settings[KeyExcludedArchs]
			require.True(t, ok, "profile %s input %v", name, in)
			for _, arch := range profile.Archs {
				assert.Contains(t, excluded, arch, "profile %s input %v", name, in)
			}
		}
	}

	carthage, err := LookupProfile("carthage-fix")
	require.NoError(t, err)
	res := Evaluate(mustRules(t, carthage.Rules...), carthage.Params(), Settings{KeyValidArchs: "armv7 arm64 "})
	assert.Equal(t, Settings{KeyValidArchs: "arm64 ", KeyExcludedArchs: "armv7 i386"}, res.Settings)
}

func TestEvaluate_XbarProfile(t *testing.T) {
	profile, err := LookupProfile(DefaultProfile)
	require.NoError(t, err)

	res := Evaluate(mustRules(t, profile.Rules...), profile.Params(), Settings{
		KeyValidArchs:       "armv7 arm64 ",
		KeyDeploymentTarget: "9.0",
	})
	assert.Equal(t, Settings{
		KeyValidArchs:       "",
		KeyExcludedArchs:    "arm64 arm64e armv7 armv7s armv6 armv8",
		KeyDeploymentTarget: "11.0",
	}, res.Settings)

	var order []string
	for _, c := range res.Changes {
		order = append(order, c.Rule)
	}
	assert.Equal(t, []string{RuleStripValidArchs, RuleExcludeArchs, RulePinDeploymentTarget}, order)
}

func TestRules_Lookup(t *testing.T) {
	rules, err := Rules([]string{" " + RulePinDeploymentTarget, RuleStripValidArchs})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, RulePinDeploymentTarget, rules[0].Name)

	_, err = Rules([]string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown rule "nope"`)

	assert.Len(t, RuleNames(), 6)
}

func TestParseMatchMode(t *testing.T) {
	mode, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchSubstring, mode)

	mode, err = ParseMatchMode("TOKEN")
	require.NoError(t, err)
	assert.Equal(t, MatchToken, mode)

	_, err = ParseMatchMode("regex")
	require.Error(t, err)
}

func TestLookupProfile(t *testing.T) {
	profile, err := LookupProfile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, profile.Name)

	profile.Archs[0] = "changed"
	again, err := LookupProfile(DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "arm64", again.Archs[0])

	carthage, err := LookupProfile("carthage-fix")
	require.NoError(t, err)
	assert.Equal(t, []string{"armv7", "i386"}, carthage.Archs)
	assert.Empty(t, carthage.DeploymentTarget)

	_, err = LookupProfile("nope")
	require.Error(t, err)
}
