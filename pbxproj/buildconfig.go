package pbxproj

import (
	"strings"

	"github.com/soapywu/xbar/pbxparser"
)

// BuildConfiguration is one XCBuildConfiguration object. Setting values are
// read and written unquoted; the raw form in the project is handled here.
type BuildConfiguration struct {
	UUID       string
	Name       string
	TargetName string
	object     pbxparser.Object
}

func newBuildConfiguration(uuid string, obj pbxparser.Object, owner string) *BuildConfiguration {
	config := &BuildConfiguration{
		UUID:   uuid,
		Name:   pbxparser.Unquote(obj.GetString("name")),
		object: obj,
	}
	config.TargetName = owner
	if config.TargetName == "" {
		if name, ok := config.Setting("TARGET_NAME"); ok {
			config.TargetName = name
		} else if name, ok := config.Setting("PRODUCT_NAME"); ok {
			config.TargetName = name
		}
	}
	return config
}

func (c *BuildConfiguration) buildSettings() pbxparser.Object {
	return c.object.GetObject("buildSettings")
}

func (c *BuildConfiguration) rawKey(key string) (string, bool) {
	settings := c.buildSettings()
	if settings.Has(key) {
		return key, true
	}
	if quoted := pbxparser.Quote(key); settings.Has(quoted) {
		return quoted, true
	}
	return "", false
}

// settingValue flattens a raw setting. Lists are joined with single spaces.
func settingValue(val interface{}) (string, bool) {
	switch {
	case isString(val):
		return pbxparser.Unquote(toString(val)), true
	case isArray(val):
		values := arrayValues(val)
		for i, v := range values {
			values[i] = pbxparser.Unquote(v)
		}
		return strings.Join(values, " "), true
	}
	return "", false
}

func (c *BuildConfiguration) Setting(key string) (string, bool) {
	raw, ok := c.rawKey(key)
	if !ok {
		return "", false
	}
	return settingValue(c.buildSettings().ForceGet(raw))
}

func (c *BuildConfiguration) SetSetting(key, value string) {
	settings, ok := c.object.Get("buildSettings")
	if !ok || !isObject(settings) {
		settings = pbxparser.NewObject()
		c.object.Set("buildSettings", settings)
	}
	if raw, found := c.rawKey(key); found {
		toObject(settings).Set(raw, pbxparser.Quote(value))
		return
	}
	obj := toObject(settings)
	obj.InsertAt(sortedPosition(obj, key), pbxparser.Quote(key), pbxparser.Quote(value))
}

// sortedPosition is where Xcode would place a new setting: before the first
// setting whose unquoted name sorts after key.
func sortedPosition(settings pbxparser.Object, key string) int {
	for i, item := range settings.Items() {
		if pbxparser.IsCommentKey(item.Key()) {
			continue
		}
		if pbxparser.Unquote(item.Key()) > key {
			return i
		}
	}
	return settings.Size()
}

// Settings returns every setting keyed by unquoted name.
func (c *BuildConfiguration) Settings() map[string]string {
	result := map[string]string{}
	c.buildSettings().ForeachWithFilter(func(key string, val interface{}) pbxparser.IterateActionType {
		if value, ok := settingValue(val); ok {
			result[pbxparser.Unquote(key)] = value
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
	return result
}
