// Package mapping dispatches declarative field specs to structural
// resolution strategies and orchestrates a whole benchmark export.
//
// The runtime "structure" string from the configuration is compiled
// once into a closed tagged variant (FieldSpec); every strategy switch
// is exhaustive over Kind, so adding a kind is a compiler-checked
// enumeration change rather than a stringly-typed branch.
package mapping

import (
	"fmt"
	"sort"

	"github.com/benchmap/benchmap/pkg/styleconfig"
)

// Kind enumerates the structural strategies.
type Kind int

const (
	KindSimple Kind = iota
	KindComposite
	KindEmbeddedTags
	KindIdentList
	KindNested
	KindProfiles
	KindCorrelation
)

// String returns the config-visible structure name.
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return styleconfig.StructureSimple
	case KindComposite:
		return styleconfig.StructureComposite
	case KindEmbeddedTags:
		return styleconfig.StructureEmbedded
	case KindIdentList:
		return styleconfig.StructureIdentList
	case KindNested:
		return styleconfig.StructureNested
	case KindProfiles:
		return styleconfig.StructureProfiles
	case KindCorrelation:
		return styleconfig.StructureCorrelation
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FieldSpec is the compiled form of one field mapping. Exactly one
// payload matching Kind is set.
type FieldSpec struct {
	Kind Kind

	Simple      *SimpleSpec
	Composite   *CompositeSpec
	Embedded    *EmbeddedSpec
	IdentList   *IdentListSpec
	Nested      *NestedSpec
	Correlation *CorrelationSpec
}

// SimpleSpec copies one source through a transform, substituting
// tokens in textual results.
type SimpleSpec struct {
	Source    string
	Transform string
	Attrs     []AttrTemplate
}

// SourceRef is one source+transform pair.
type SourceRef struct {
	Source    string
	Transform string
}

// CompositeSpec joins several sources, silently dropping empties.
type CompositeSpec struct {
	Sources   []SourceRef
	Separator string
}

// TagSpec is one sub-tag of an embedded-tags field: static Content or
// a composite-like join of Sources. Optional tags vanish when empty;
// non-optional empty tags are still emitted.
type TagSpec struct {
	Name      string
	Optional  bool
	Content   string
	Sources   []SourceRef
	Separator string
}

// EmbeddedSpec emits a fixed ordered sequence of named sub-tags.
type EmbeddedSpec struct {
	Tags []TagSpec
}

// IdentListSpec renders one identifier element per source item. The
// templates substitute against {item.*}; the handler is taxonomy-blind.
type IdentListSpec struct {
	Source string
	System string
	Value  string
	Attrs  []AttrTemplate
}

// NestedSpec is the generic recursive tree builder input.
type NestedSpec struct {
	Root       string
	Namespace  string
	Prefix     string
	Source     string
	GroupBy    string
	AllowEmpty bool
	RootAttrs  []AttrTemplate
	Group      *NodeSpec
	Item       *NodeSpec
	Children   []*NodeSpec
}

// NodeSpec is one element template inside a nested tree.
type NodeSpec struct {
	Element  string
	Attrs    []AttrTemplate
	Content  string
	ForEach  bool
	Children []*NodeSpec
}

// CorrelationSpec emits deduplicated correlation identifiers plus
// reference-only uncovered citations. System is the identifier
// naming-system template.
type CorrelationSpec struct {
	System string
}

// AttrTemplate is one attribute name with its value template.
// Compiled attribute order is sorted by name for determinism.
type AttrTemplate struct {
	Name     string
	Template string
}

// CompileSpec converts a declarative spec into the closed variant.
// The field name is only used in errors.
func CompileSpec(field string, raw styleconfig.RawFieldSpec) (FieldSpec, error) {
	switch raw.StructureKind() {
	case styleconfig.StructureSimple:
		if raw.Source == "" {
			return FieldSpec{}, &FieldMappingError{Field: field, Err: ErrMissingSource}
		}
		return FieldSpec{Kind: KindSimple, Simple: &SimpleSpec{
			Source:    raw.Source,
			Transform: transformOrNone(raw.Transform),
			Attrs:     compileAttrs(raw.Attrs),
		}}, nil

	case styleconfig.StructureComposite:
		if len(raw.Sources) == 0 {
			return FieldSpec{}, &FieldMappingError{Field: field, Err: ErrMissingSource}
		}
		return FieldSpec{Kind: KindComposite, Composite: &CompositeSpec{
			Sources:   compileSources(raw.Sources),
			Separator: raw.Separator,
		}}, nil

	case styleconfig.StructureEmbedded:
		tags := make([]TagSpec, 0, len(raw.Tags))
		for _, t := range raw.Tags {
			tags = append(tags, TagSpec{
				Name:      t.Name,
				Optional:  t.Optional,
				Content:   t.Content,
				Sources:   compileSources(t.Sources),
				Separator: t.Separator,
			})
		}
		return FieldSpec{Kind: KindEmbeddedTags, Embedded: &EmbeddedSpec{Tags: tags}}, nil

	case styleconfig.StructureIdentList:
		if raw.Source == "" {
			return FieldSpec{}, &FieldMappingError{Field: field, Err: ErrMissingSource}
		}
		return FieldSpec{Kind: KindIdentList, IdentList: &IdentListSpec{
			Source: raw.Source,
			System: raw.System,
			Value:  raw.Value,
			Attrs:  compileAttrs(raw.AttrTemplates),
		}}, nil

	case styleconfig.StructureNested:
		if raw.Source == "" {
			return FieldSpec{}, &FieldMappingError{Field: field, Err: ErrMissingSource}
		}
		return FieldSpec{Kind: KindNested, Nested: &NestedSpec{
			Root:       raw.Root,
			Namespace:  raw.Namespace,
			Prefix:     raw.Prefix,
			Source:     raw.Source,
			GroupBy:    raw.GroupBy,
			AllowEmpty: raw.AllowEmpty,
			RootAttrs:  compileAttrs(raw.Attrs),
			Group:      compileNode(raw.Group),
			Item:       compileNode(raw.Item),
			Children:   compileNodes(raw.Children),
		}}, nil

	case styleconfig.StructureProfiles:
		return FieldSpec{Kind: KindProfiles}, nil

	case styleconfig.StructureCorrelation:
		return FieldSpec{Kind: KindCorrelation, Correlation: &CorrelationSpec{
			System: raw.System,
		}}, nil

	default:
		return FieldSpec{}, &FieldMappingError{
			Field: field,
			Err:   fmt.Errorf("%w: %q", ErrUnknownStructure, raw.Structure),
		}
	}
}

func transformOrNone(name string) string {
	if name == "" {
		return "none"
	}
	return name
}

func compileSources(raw []styleconfig.RawSource) []SourceRef {
	refs := make([]SourceRef, 0, len(raw))
	for _, r := range raw {
		refs = append(refs, SourceRef{Source: r.Source, Transform: transformOrNone(r.Transform)})
	}
	return refs
}

func compileAttrs(raw map[string]string) []AttrTemplate {
	if len(raw) == 0 {
		return nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	attrs := make([]AttrTemplate, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, AttrTemplate{Name: name, Template: raw[name]})
	}
	return attrs
}

func compileNode(raw *styleconfig.RawNode) *NodeSpec {
	if raw == nil {
		return nil
	}
	return &NodeSpec{
		Element:  raw.Element,
		Attrs:    compileAttrs(raw.Attrs),
		Content:  raw.Content,
		ForEach:  raw.ForEach,
		Children: compileNodes(raw.Children),
	}
}

func compileNodes(raw []*styleconfig.RawNode) []*NodeSpec {
	if len(raw) == 0 {
		return nil
	}
	nodes := make([]*NodeSpec, 0, len(raw))
	for _, r := range raw {
		nodes = append(nodes, compileNode(r))
	}
	return nodes
}
