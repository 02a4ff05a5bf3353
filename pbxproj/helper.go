package pbxproj

import (
	"github.com/soapywu/xbar/pbxparser"
)

func isObject(obj interface{}) bool {
	_, ok := obj.(pbxparser.Object)
	return ok
}

func toObject(obj interface{}) pbxparser.Object {
	return obj.(pbxparser.Object)
}

func isArray(obj interface{}) bool {
	_, ok := obj.([]interface{})
	return ok
}

func toArray(obj interface{}) []interface{} {
	return obj.([]interface{})
}

func isString(obj interface{}) bool {
	_, ok := obj.(string)
	return ok
}

func toString(obj interface{}) string {
	return obj.(string)
}

func getComment(key string, parent pbxparser.Object) string {
	return parent.GetComment(key)
}

var nonCommentsFilter = pbxparser.NonComments

// arrayValues returns the raw values of a list, dropping attached comments.
func arrayValues(val interface{}) []string {
	if !isArray(val) {
		return nil
	}
	list := toArray(val)
	result := make([]string, 0, len(list))
	for _, v := range list {
		switch v := v.(type) {
		case string:
			result = append(result, v)
		case pbxparser.Object:
			if value := v.GetString("value"); value != "" {
				result = append(result, value)
			}
		}
	}
	return result
}
