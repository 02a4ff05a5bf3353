package pbxparser

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallProject = `// !$*UTF8*$!
{
	archiveVersion = 1;
	objects = {

/* Begin PBXBuildFile section */
		AA01 /* main.m in Sources */ = {isa = PBXBuildFile; fileRef = AA02 /* main.m */; };
/* End PBXBuildFile section */

/* Begin XCBuildConfiguration section */
		AA10 /* Debug */ = {
			isa = XCBuildConfiguration;
			buildSettings = {
				"CODE_SIGN_IDENTITY[sdk=iphoneos*]" = "iPhone Developer";
				OTHER_LDFLAGS = (
					"-ObjC",
					"-lz",
				);
				VALID_ARCHS = "armv7 arm64 ";
			};
			name = Debug;
		};
/* End XCBuildConfiguration section */

/* Begin XCConfigurationList section */
		AA20 /* Build configuration list */ = {
			isa = XCConfigurationList;
			buildConfigurations = (
				AA10 /* Debug */,
			);
		};
/* End XCConfigurationList section */
	};
	rootObject = AA30 /* Project object */;
}
`

func TestParse_Structure(t *testing.T) {
	contents, err := Parse("project.pbxproj", smallProject)
	require.NoError(t, err)

	assert.Equal(t, "!$*UTF8*$!", contents.GetString("headComment"))

	project := contents.GetObject("project")
	assert.Equal(t, "1", project.GetString("archiveVersion"))
	assert.Equal(t, "AA30", project.GetString("rootObject"))
	assert.Equal(t, "Project object", project.GetComment("rootObject"))

	objects := project.GetObject("objects")
	assert.Equal(t, []string{"PBXBuildFile", "XCBuildConfiguration", "XCConfigurationList"}, objects.Keys())

	buildFile := objects.GetObject("PBXBuildFile").GetObject("AA01")
	assert.Equal(t, "PBXBuildFile", buildFile.GetString("isa"))
	assert.Equal(t, "main.m", buildFile.GetComment("fileRef"))
	assert.Equal(t, "main.m in Sources", objects.GetObject("PBXBuildFile").GetComment("AA01"))
}

func TestParse_KeepsRawScalars(t *testing.T) {
	contents, err := Parse("", smallProject)
	require.NoError(t, err)

	settings := contents.GetObject("project").GetObject("objects").
		GetObject("XCBuildConfiguration").GetObject("AA10").GetObject("buildSettings")

	assert.Equal(t, `"armv7 arm64 "`, settings.GetString("VALID_ARCHS"))
	assert.Equal(t, `"iPhone Developer"`, settings.GetString(`"CODE_SIGN_IDENTITY[sdk=iphoneos*]"`))

	flags, ok := settings.Get("OTHER_LDFLAGS")
	require.True(t, ok)
	assert.Equal(t, []interface{}{`"-ObjC"`, `"-lz"`}, flags)
}

func TestParse_CommentedArrayItems(t *testing.T) {
	contents, err := Parse("", smallProject)
	require.NoError(t, err)

	list := contents.GetObject("project").GetObject("objects").
		GetObject("XCConfigurationList").GetObject("AA20")
	items, ok := list.Get("buildConfigurations")
	require.True(t, ok)
	require.Len(t, items, 1)

	item, ok := items.([]interface{})[0].(Object)
	require.True(t, ok)
	assert.Equal(t, "AA10", item.GetString("value"))
	assert.Equal(t, "Debug", item.GetString("comment"))
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{name: "not a dictionary", src: "// !$*UTF8*$!\n(\n)", line: 2},
		{name: "missing semicolon", src: "{\n\ta = b\n}", line: 3},
		{name: "unterminated string", src: "{\n\ta = \"b;\n}", line: 2},
		{name: "truncated", src: "{\n\ta = {\n", line: 3},
		{name: "trailing garbage", src: "{\n}\n}", line: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("broken.pbxproj", tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSyntax))

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tt.line, syntaxErr.Line)
			assert.True(t, strings.HasPrefix(err.Error(), "broken.pbxproj:"))
		})
	}
}

func TestParse_ObjectWithoutIsa(t *testing.T) {
	_, err := Parse("", "{\n\tobjects = {\n\t\tAA01 = {name = x;};\n\t};\n}\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyntax))
	assert.Contains(t, err.Error(), "AA01 has no isa")
}

func TestObject_MarshalJSONKeepsOrder(t *testing.T) {
	obj := NewObjectWithData([]ObjectItem{
		NewObjectItem("zeta", "1"),
		NewObjectItem("alpha", []interface{}{"a", "b"}),
		NewObjectItem("mid", NewObjectWithData([]ObjectItem{NewObjectItem("k", "v")})),
	})

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"1","alpha":["a","b"],"mid":{"k":"v"}}`, string(data))
}

func TestSliceMap_DeleteKeepsOrderAndIndex(t *testing.T) {
	m := NewSliceMap()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)
	m.Set("d", 4)

	m.Delete("b")
	assert.Equal(t, []string{"a", "c", "d"}, m.Keys())

	// replacing after a delete must hit the shifted slot
	m.Set("d", 40)
	v, ok := m.Get("d")
	require.True(t, ok)
	assert.Equal(t, 40, v)
	assert.Equal(t, []string{"a", "c", "d"}, m.Keys())

	m.DeleteAt(0)
	assert.False(t, m.Has("a"))
	assert.Equal(t, 2, m.Size())
}

func TestSliceMap_InsertAt(t *testing.T) {
	m := NewSliceMap()
	m.Set("a", 1)
	m.Set("c", 3)

	m.InsertAt(1, "b", 2)
	m.InsertAt(-5, "first", 0)
	m.InsertAt(99, "last", 4)
	assert.Equal(t, []string{"first", "a", "b", "c", "last"}, m.Keys())

	// later keys were reindexed
	m.Set("c", 30)
	assert.Equal(t, 30, m.ForceGet("c"))
	assert.Equal(t, 5, m.Size())

	m.InsertAt(0, "b", 20)
	assert.Equal(t, []string{"first", "a", "b", "c", "last"}, m.Keys())
	assert.Equal(t, 20, m.ForceGet("b"))
}

func TestQuoteUnquote(t *testing.T) {
	assert.Equal(t, "11.0", Quote("11.0"))
	assert.Equal(t, `""`, Quote(""))
	assert.Equal(t, `"arm64 armv7"`, Quote("arm64 armv7"))
	assert.Equal(t, `"$(ARCHS_STANDARD_64_BIT)"`, Quote("$(ARCHS_STANDARD_64_BIT)"))
	assert.Equal(t, `"say \"hi\""`, Quote(`say "hi"`))

	assert.Equal(t, "armv7 arm64 ", Unquote(`"armv7 arm64 "`))
	assert.Equal(t, "YES", Unquote("YES"))
	assert.Equal(t, `say "hi"`, Unquote(`"say \"hi\""`))
	assert.Equal(t, "a\nb", Unquote(`"a\nb"`))

	for _, s := range []string{"", "x", "a b", `q"uote`, "$(inherited)", "back\\slash"} {
		assert.Equal(t, s, Unquote(Quote(s)))
	}
}
