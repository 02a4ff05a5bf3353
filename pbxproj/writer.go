/**
Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements.  See the NOTICE file
distributed with this work for additional information
regarding copyright ownership.  The ASF licenses this file
to you under the Apache License, Version 2.0 (the
'License'); you may not use this file except in compliance
with the License.  You may obtain a copy of the License at
http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
'AS IS' BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied.  See the License for the
specific language governing permissions and limitations
under the License.
*/
package pbxproj

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/gofrs/uuid"
	"howett.net/plist"

	"github.com/soapywu/xbar/pbxparser"
)

const (
	INDENT = "\t"
)

// ErrVerify is returned by Write when the serialized project does not read
// back as a property list. The file on disk is left untouched.
var ErrVerify = errors.New("serialized project failed verification")

type PbxWriterOption func(w *PbxWriter)

// WithVerify makes Write decode the serialized bytes with an independent
// plist reader before replacing the project file.
func WithVerify(verify bool) PbxWriterOption {
	return func(w *PbxWriter) {
		w.verify = verify
	}
}

// WithFileMode sets the mode used when the target file does not exist yet.
func WithFileMode(mode os.FileMode) PbxWriterOption {
	return func(w *PbxWriter) {
		w.mode = mode
	}
}

type PbxWriter struct {
	buf         strings.Builder
	contents    pbxparser.Object
	verify      bool
	mode        os.FileMode
	indentLevel int
	err         error
}

func NewPbxWriter(project *PbxProject, options ...PbxWriterOption) *PbxWriter {
	w := &PbxWriter{
		contents: project.Contents(),
		mode:     0644,
	}
	for _, option := range options {
		option(w)
	}
	return w
}

func indent(x int) string {
	if x <= 0 {
		return ""
	}
	return strings.Repeat(INDENT, x)
}

func (w *PbxWriter) write(format string, args ...interface{}) {
	w.buf.WriteString(indent(w.indentLevel))
	fmt.Fprintf(&w.buf, format, args...)
}

func (w *PbxWriter) writeNoIndent(format string, args ...interface{}) {
	fmt.Fprintf(&w.buf, format, args...)
}

func (w *PbxWriter) fail(where, key string, val interface{}) {
	if w.err == nil {
		w.err = fmt.Errorf("%s: unsupported value for %s: %v", where, key, reflect.TypeOf(val))
	}
}

// Bytes serializes the project in Xcode's layout.
func (w *PbxWriter) Bytes() ([]byte, error) {
	w.buf.Reset()
	w.err = nil
	w.indentLevel = 0

	w.writeHeadComment()
	w.writeProject()
	if w.err != nil {
		return nil, w.err
	}
	return []byte(w.buf.String()), nil
}

// Write serializes the project and replaces filePath with it. The bytes go to
// a temporary file in the same directory first, which is renamed over
// filePath once complete.
func (w *PbxWriter) Write(filePath string) error {
	data, err := w.Bytes()
	if err != nil {
		return err
	}
	if w.verify {
		var decoded interface{}
		if _, err := plist.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("%w: %v", ErrVerify, err)
		}
	}

	mode := w.mode
	if info, err := os.Stat(filePath); err == nil {
		mode = info.Mode().Perm()
	}

	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("failed to name temporary file: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(filePath), "."+filepath.Base(filePath)+"."+id.String()+".tmp")
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", filePath, err)
	}
	return nil
}

func (w *PbxWriter) writeHeadComment() {
	comment := w.contents.GetString("headComment")
	if comment != "" {
		w.writeNoIndent("// %s\n", comment)
	}
}

func (w *PbxWriter) writeProject() {
	proj := w.contents.GetObject("project")

	w.write("{\n")
	w.indentLevel++
	w.writeObject(proj, true)
	w.indentLevel--
	w.write("}\n")
}

func (w *PbxWriter) writeObject(obj pbxparser.Object, top bool) {
	obj.ForeachWithFilter(func(key string, val interface{}) pbxparser.IterateActionType {
		cmt := getComment(key, obj)
		switch {
		case isArray(val):
			w.writeArray(toArray(val), key)
		case isObject(val):
			if cmt != "" {
				w.write("%s /* %s */ = {\n", key, cmt)
			} else {
				w.write("%s = {\n", key)
			}
			w.indentLevel++
			if top && key == "objects" {
				w.writeObjectsSections(toObject(val))
			} else {
				w.writeObject(toObject(val), false)
			}
			w.indentLevel--
			w.write("};\n")
		case isString(val):
			if cmt != "" {
				w.write("%s = %s /* %s */;\n", key, toString(val), cmt)
			} else {
				w.write("%s = %s;\n", key, toString(val))
			}
		default:
			w.fail("writeObject", key, val)
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
}

func (w *PbxWriter) writeObjectsSections(obj pbxparser.Object) {
	obj.ForeachWithFilter(func(key string, val interface{}) pbxparser.IterateActionType {
		if !isObject(val) || toObject(val).IsEmpty() {
			return pbxparser.IterateActionContinue
		}
		w.writeNoIndent("\n")
		w.writeSectionComment(key, true)
		w.writeSection(toObject(val))
		w.writeSectionComment(key, false)
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
}

func (w *PbxWriter) writeArray(arr []interface{}, name string) {
	w.write("%s = (\n", name)
	w.indentLevel++

	for _, item := range arr {
		switch {
		case isObject(item):
			val := toObject(item)
			value := val.GetString("value")
			comment := val.GetString("comment")
			if value != "" && comment != "" {
				w.write("%s /* %s */,\n", value, comment)
			} else {
				w.write("{\n")
				w.indentLevel++
				w.writeObject(val, false)
				w.indentLevel--
				w.write("},\n")
			}
		case isString(item):
			w.write("%s,\n", toString(item))
		default:
			w.fail("writeArray", name, item)
		}
	}
	w.indentLevel--
	w.write(");\n")
}

func (w *PbxWriter) writeSectionComment(name string, begin bool) {
	if begin {
		w.writeNoIndent("/* Begin %s section */\n", name)
	} else {
		w.writeNoIndent("/* End %s section */\n", name)
	}
}

func (w *PbxWriter) writeSection(section pbxparser.Object) {
	section.ForeachWithFilter(func(key string, val interface{}) pbxparser.IterateActionType {
		cmt := getComment(key, section)
		if !isObject(val) {
			return pbxparser.IterateActionContinue
		}
		obj := toObject(val)
		isa := pbxparser.Unquote(obj.GetString("isa"))
		if isa == "PBXBuildFile" || isa == "PBXFileReference" {
			w.writeInlineObject(key, cmt, obj)
			return pbxparser.IterateActionContinue
		}
		if cmt != "" {
			w.write("%s /* %s */ = {\n", key, cmt)
		} else {
			w.write("%s = {\n", key)
		}
		w.indentLevel++
		w.writeObject(obj, false)
		w.indentLevel--
		w.write("};\n")
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)
}

func (w *PbxWriter) writeInlineObjectHelp(output *[]string, name string, desc string, ref pbxparser.Object) {
	if desc != "" {
		*output = append(*output, fmt.Sprintf("%s /* %s */ = {", name, desc))
	} else {
		*output = append(*output, fmt.Sprintf("%s = {", name))
	}

	ref.ForeachWithFilter(func(key string, val interface{}) pbxparser.IterateActionType {
		cmt := getComment(key, ref)
		switch {
		case isArray(val):
			*output = append(*output, fmt.Sprintf("%s = (", key))
			for _, item := range toArray(val) {
				switch {
				case isString(item):
					*output = append(*output, toString(item)+", ")
				case isObject(item) && toObject(item).GetString("comment") != "":
					*output = append(*output, fmt.Sprintf("%s /* %s */, ", toObject(item).GetString("value"), toObject(item).GetString("comment")))
				default:
					w.fail("writeInlineObject", key, item)
				}
			}
			*output = append(*output, "); ")
		case isObject(val):
			w.writeInlineObjectHelp(output, key, cmt, toObject(val))
			*output = append(*output, " ")
		case isString(val):
			if cmt != "" {
				*output = append(*output, fmt.Sprintf("%s = %s /* %s */; ", key, toString(val), cmt))
			} else {
				*output = append(*output, fmt.Sprintf("%s = %s; ", key, toString(val)))
			}
		default:
			w.fail("writeInlineObject", key, val)
		}
		return pbxparser.IterateActionContinue
	}, nonCommentsFilter)

	*output = append(*output, "};")
}

func (w *PbxWriter) writeInlineObject(name string, desc string, ref pbxparser.Object) {
	output := []string{}
	w.writeInlineObjectHelp(&output, name, desc, ref)
	w.write("%s\n", strings.TrimSpace(strings.Join(output, "")))
}
