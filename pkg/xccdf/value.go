package xccdf

// Value is the closed variant of resolved field values. The serializer
// switches on the concrete type; nothing else implements it.
type Value interface {
	isValue()
}

// Text is plain or markup-bearing text content.
type Text string

func (Text) isValue() {}

// TagBlock is an ordered sequence of named sub-tags embedded inside
// one field's text content, e.g. the VulnDiscussion family.
type TagBlock []Tag

func (TagBlock) isValue() {}

// Tag is one named sub-tag. Content may be empty for tags emitted as
// <Name></Name>.
type Tag struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// IdentList is a sequence of identifier elements.
type IdentList []Ident

func (IdentList) isValue() {}

// Ident is one identifier element with its naming-system URI.
type Ident struct {
	System string            `json:"system"`
	Value  string            `json:"value"`
	Attrs  map[string]string `json:"attrs,omitempty"`
}

// ReferenceList is a sequence of reference-only external citations,
// emitted for cited identifiers no correlation identifier covers.
type ReferenceList []string

func (ReferenceList) isValue() {}

// CorrelationSet pairs the deduplicated correlation identifiers with
// the cited-but-uncovered external identifiers that remain
// reference-only.
type CorrelationSet struct {
	Idents     IdentList     `json:"idents,omitempty"`
	References ReferenceList `json:"references,omitempty"`
}

func (CorrelationSet) isValue() {}

// Element is a generic nested element tree for grouped metadata.
// Attribute order is deterministic.
type Element struct {
	Name      string     `json:"name"`
	Namespace string     `json:"namespace,omitempty"`
	Prefix    string     `json:"prefix,omitempty"`
	Attrs     []Attr     `json:"attrs,omitempty"`
	Content   string     `json:"content,omitempty"`
	Children  []*Element `json:"children,omitempty"`
}

func (*Element) isValue() {}

// Attr is one attribute on an Element.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
