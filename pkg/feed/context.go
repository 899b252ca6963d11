package feed

import "strings"

// JSONContext is the transient state a JSON schema keeps while tokens arrive: the
// last key seen and the stack of open containers, each named by the key that
// introduced it (empty for the document root or anonymous array elements).
type JSONContext struct {
	Key string

	containers []container
}

type container struct {
	name  string
	array bool
}

func (c *JSONContext) Reset() {
	c.Key = ""
	c.containers = c.containers[:0]
}

// Track updates the context for a token and should be called before the schema
// evaluates its predicates.
func (c *JSONContext) Track(token JSONToken) {
	switch token.Kind {
	case DocumentStart:
		c.Reset()
	case Key:
		c.Key = token.Text
	case ObjectStart, ArrayStart:
		name := c.Key
		// Elements of an array inherit no key of their own
		if len(c.containers) > 0 && c.containers[len(c.containers)-1].array {
			name = ""
		}
		c.containers = append(c.containers, container{name: name, array: token.Kind == ArrayStart})
		c.Key = ""
	case ObjectEnd, ArrayEnd:
		if len(c.containers) > 0 {
			c.containers = c.containers[:len(c.containers)-1]
		}
		c.Key = ""
	}
}

// Container is the name of the innermost open array or object.
func (c *JSONContext) Container() string {
	if len(c.containers) == 0 {
		return ""
	}

	return c.containers[len(c.containers)-1].name
}

// Array is the name of the innermost open array, or "" when none is open.
func (c *JSONContext) Array() string {
	for i := len(c.containers) - 1; i >= 0; i-- {
		if c.containers[i].array {
			return c.containers[i].name
		}
	}

	return ""
}

// Object is the name of the innermost named object. Anonymous array elements are
// skipped so a field inside "uploader" inside an asset reports "uploader".
func (c *JSONContext) Object() string {
	for i := len(c.containers) - 1; i >= 0; i-- {
		if !c.containers[i].array && c.containers[i].name != "" {
			return c.containers[i].name
		}
		if c.containers[i].array {
			return ""
		}
	}

	return ""
}

// Depth is the number of open containers.
func (c *JSONContext) Depth() int {
	return len(c.containers)
}

// TagPath tracks the three innermost open XML tags, which is enough to identify
// every field the feeds care about.
type TagPath struct {
	GrandParent string
	Parent      string
	Tag         string
	Level       int
}

func (t *TagPath) Reset() {
	*t = TagPath{}
}

// Track updates the path for a token.
func (t *TagPath) Track(token XMLToken) {
	switch token.Kind {
	case StartTag:
		t.Level++
		t.GrandParent = t.Parent
		t.Parent = t.Tag
		t.Tag = token.Name
	case EndTag:
		t.Level--
		t.Tag = t.Parent
		t.Parent = t.GrandParent
		// only three levels are kept so the new grandparent is unknown
		t.GrandParent = "??"
	}
}

func (t *TagPath) Path() string {
	return t.GrandParent + "/" + t.Parent + "/" + t.Tag
}

// HasSuffix matches the trailing tags of the path, e.g. "item/title".
func (t *TagPath) HasSuffix(suffix string) bool {
	path := t.Path()
	suffix = strings.TrimPrefix(suffix, "/")

	return path == suffix || strings.HasSuffix(path, "/"+suffix)
}
