package pbxparser

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrSyntax is matched by every *SyntaxError.
var ErrSyntax = errors.New("pbxparser: syntax error")

type SyntaxError struct {
	Filename string
	Line     int
	Column   int
	Msg      string
}

func (e *SyntaxError) Error() string {
	name := e.Filename
	if name == "" {
		name = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: %s", name, e.Line, e.Column, e.Msg)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}

type parser struct {
	filename string
	src      string
	pos      int
}

// ParseReader reads a project.pbxproj document. The result holds the root
// dictionary under "project" and the leading line comment, without its "//",
// under "headComment".
func ParseReader(filename string, r io.Reader) (Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, err
	}
	return Parse(filename, string(data))
}

func Parse(filename, src string) (Object, error) {
	p := &parser{filename: filename, src: strings.TrimPrefix(src, "\ufeff")}
	contents := NewObject()

	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], "//") {
		end := strings.IndexByte(p.src[p.pos:], '\n')
		if end < 0 {
			end = len(p.src) - p.pos
		}
		contents.Set("headComment", strings.TrimSpace(p.src[p.pos+2:p.pos+end]))
		p.pos += end
	}

	p.skipComments()
	if p.peek() != '{' {
		return Object{}, p.errorf("expected '{' at start of project")
	}
	root, err := p.parseValue()
	if err != nil {
		return Object{}, err
	}
	project := root.(Object)
	if objects, ok := project.Get("objects"); ok {
		if objs, ok := objects.(Object); ok {
			sections, err := p.groupSections(objs)
			if err != nil {
				return Object{}, err
			}
			project.Set("objects", sections)
		}
	}
	contents.Set("project", project)

	p.skipComments()
	if p.pos < len(p.src) {
		return Object{}, p.errorf("unexpected %q after project", p.src[p.pos])
	}
	return contents, nil
}

// groupSections regroups the flat objects dictionary by isa, the way Xcode
// prints it between "Begin/End <isa> section" comments. Sections keep the
// order of their first object.
func (p *parser) groupSections(objects Object) (Object, error) {
	sections := NewObject()
	var err error
	objects.ForeachWithFilter(func(uuid string, val interface{}) IterateActionType {
		obj, ok := val.(Object)
		if !ok {
			err = &SyntaxError{Filename: p.filename, Msg: fmt.Sprintf("object %s is not a dictionary", uuid)}
			return IterateActionBreak
		}
		isa := Unquote(obj.GetString("isa"))
		if isa == "" {
			err = &SyntaxError{Filename: p.filename, Msg: fmt.Sprintf("object %s has no isa", uuid)}
			return IterateActionBreak
		}
		section, found := sections.Get(isa)
		if !found {
			section = NewObject()
			sections.Set(isa, section)
		}
		section.(Object).Set(uuid, obj)
		if cmt := objects.GetComment(uuid); cmt != "" {
			section.(Object).Set(CommentKey(uuid), cmt)
		}
		return IterateActionContinue
	}, NonComments)
	return sections, err
}

func (p *parser) errorf(format string, args ...interface{}) error {
	line, col := 1, 1
	for _, r := range p.src[:p.pos] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &SyntaxError{Filename: p.filename, Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// skipComments skips whitespace and comments and returns the text of the last
// comment seen.
func (p *parser) skipComments() string {
	comment := ""
	for {
		p.skipSpace()
		rest := p.src[p.pos:]
		switch {
		case strings.HasPrefix(rest, "/*"):
			end := strings.Index(rest[2:], "*/")
			if end < 0 {
				p.pos = len(p.src)
				return comment
			}
			comment = strings.TrimSpace(rest[2 : 2+end])
			p.pos += end + 4
		case strings.HasPrefix(rest, "//"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				end = len(rest)
			}
			comment = strings.TrimSpace(rest[2:end])
			p.pos += end
		default:
			return comment
		}
	}
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		if p.pos >= len(p.src) {
			return p.errorf("expected %q, got end of input", c)
		}
		return p.errorf("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *parser) parseValue() (interface{}, error) {
	switch p.peek() {
	case '{':
		return p.parseDict()
	case '(':
		return p.parseArray()
	case 0:
		return nil, p.errorf("unexpected end of input")
	default:
		return p.parseString()
	}
}

func (p *parser) parseDict() (interface{}, error) {
	obj := NewObject()
	p.pos++ // {
	for {
		p.skipComments()
		if p.peek() == '}' {
			p.pos++
			return obj, nil
		}
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}
		keyComment := p.skipComments()
		if err := p.expect('='); err != nil {
			return nil, err
		}
		p.skipComments()
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		valueComment := p.skipComments()
		if err := p.expect(';'); err != nil {
			return nil, err
		}

		obj.Set(key, value)
		comment := keyComment
		if _, isObj := value.(Object); !isObj && valueComment != "" {
			comment = valueComment
		}
		if comment != "" {
			obj.Set(CommentKey(key), comment)
		}
	}
}

func (p *parser) parseArray() (interface{}, error) {
	list := make([]interface{}, 0)
	p.pos++ // (
	for {
		p.skipComments()
		if p.peek() == ')' {
			p.pos++
			return list, nil
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		comment := p.skipComments()
		if s, ok := value.(string); ok && comment != "" {
			value = NewObjectWithData([]ObjectItem{
				NewObjectItem("value", s),
				NewObjectItem("comment", comment),
			})
		}
		list = append(list, value)

		switch p.peek() {
		case ',':
			p.pos++
		case ')':
		default:
			return nil, p.errorf("expected ',' or ')' in array")
		}
	}
}

// parseString returns the token exactly as written, quotes included.
func (p *parser) parseString() (string, error) {
	start := p.pos
	if p.pos >= len(p.src) {
		return "", p.errorf("unexpected end of input")
	}
	if p.peek() == '"' {
		p.pos++
		for p.pos < len(p.src) {
			switch p.src[p.pos] {
			case '\\':
				p.pos += 2
			case '"':
				p.pos++
				return p.src[start:p.pos], nil
			default:
				p.pos++
			}
		}
		p.pos = start
		return "", p.errorf("unterminated quoted string")
	}

	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if isDelimiter(c) || strings.HasPrefix(p.src[p.pos:], "/*") {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("unexpected %q", p.peek())
	}
	return p.src[start:p.pos], nil
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '{', '}', '(', ')', '=', ';', ',', '"':
		return true
	}
	return false
}
