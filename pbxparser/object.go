package pbxparser

import (
	"bytes"
	"encoding/json"
	"strings"
)

type IterateActionType = int8

const (
	IterateActionContinue IterateActionType = iota
	IterateActionBreak
)

const CommentKeySuffix = "_comment"

// CommentKey is the key under which the comment attached to key is stored.
func CommentKey(key string) string {
	return key + CommentKeySuffix
}

func IsCommentKey(key string) bool {
	return strings.HasSuffix(key, CommentKeySuffix)
}

type ObjectItem = SliceItem

// Object is a dictionary of the project file. Values are either a raw scalar
// string (quotes kept as written), an Object, or a []interface{} of those.
// Copies of an Object share the same underlying map.
type Object struct {
	*SliceMap
}

type ObjectWithUUID struct {
	Object
	UUID string
}

func NewObjectItem(key string, value interface{}) ObjectItem {
	return SliceItem{key: key, data: value}
}

func NewObject() Object {
	return Object{
		SliceMap: NewSliceMap(),
	}
}

func NewObjectWithData(items []ObjectItem) Object {
	o := NewObject()
	for _, item := range items {
		o.Set(item.key, item.data)
	}
	return o
}

// MarshalJSON keeps document order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if !o.IsEmpty() {
		for i, item := range o.Items() {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(item.key)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(item.data)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o Object) IsEmpty() bool {
	if o.SliceMap == nil {
		return true
	}
	return o.Size() == 0
}

func (o Object) Get(key string) (interface{}, bool) {
	if o.SliceMap == nil {
		return nil, false
	}
	return o.SliceMap.Get(key)
}

// GetObject returns the dictionary stored under key, or an empty detached
// Object when there is none.
func (o Object) GetObject(key string) Object {
	if value, ok := o.Get(key); ok {
		if obj, ok := value.(Object); ok {
			return obj
		}
	}
	return NewObject()
}

func (o Object) GetString(key string) string {
	if value, ok := o.Get(key); ok {
		if v, ok := value.(string); ok {
			return v
		}
	}
	return ""
}

func (o Object) GetComment(key string) string {
	return o.GetString(CommentKey(key))
}

type ApplyFunc = func(key string, val interface{}) IterateActionType
type FilterFunc = func(key string, val interface{}) bool

func (o Object) Foreach(apply ApplyFunc) {
	o.ForeachWithFilter(apply, func(string, interface{}) bool { return true })
}

func (o Object) ForeachWithFilter(apply ApplyFunc, filter FilterFunc) {
	if o.IsEmpty() {
		return
	}
	for _, item := range o.Items() {
		if item.data == nil || !filter(item.key, item.data) {
			continue
		}
		if apply(item.key, item.data) == IterateActionBreak {
			break
		}
	}
}

// NonComments is a FilterFunc skipping comment entries.
func NonComments(key string, _ interface{}) bool {
	return !IsCommentKey(key)
}
