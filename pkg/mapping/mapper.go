package mapping

import (
	"fmt"
	"strings"

	"github.com/benchmap/benchmap/pkg/benchmark"
	"github.com/benchmap/benchmap/pkg/correlation"
	"github.com/benchmap/benchmap/pkg/substitution"
	"github.com/benchmap/benchmap/pkg/transform"
	"github.com/benchmap/benchmap/pkg/xccdf"
)

// Mapper resolves compiled field specs against one record. It holds
// the injected collaborators; it has no per-record state of its own.
type Mapper struct {
	Transforms *transform.Registry

	// Correlation may be nil when the style disables correlation; the
	// correlation strategy then emits every citation reference-only.
	Correlation *correlation.Service
}

// Resolve dispatches a compiled spec to its strategy and returns the
// resolved field. A nil Value means the field is omitted (optional
// nested trees over empty sources). Any failure inside resolution
// comes back as a *FieldMappingError naming the field and record; the
// field is never partially populated.
func (m *Mapper) Resolve(field string, spec FieldSpec, rec *benchmark.Recommendation, ctx *substitution.Context) (xccdf.Field, error) {
	var (
		value xccdf.Value
		attrs []xccdf.Attr
		err   error
	)

	switch spec.Kind {
	case KindSimple:
		value, attrs, err = m.resolveSimple(spec.Simple, ctx)
	case KindComposite:
		value, err = m.resolveComposite(spec.Composite, ctx)
	case KindEmbeddedTags:
		value, err = m.resolveEmbedded(spec.Embedded, ctx)
	case KindIdentList:
		value, err = m.resolveIdentList(spec.IdentList, ctx)
	case KindNested:
		value, err = m.resolveNested(spec.Nested, ctx)
	case KindProfiles:
		// Profile selectors are benchmark-level output; the engine
		// assembles them after every rule is mapped.
		return xccdf.Field{Name: field}, nil
	case KindCorrelation:
		value, err = m.resolveCorrelation(spec.Correlation, rec, ctx)
	default:
		err = fmt.Errorf("%w: %v", ErrUnknownStructure, spec.Kind)
	}

	if err != nil {
		return xccdf.Field{}, wrapFieldError(field, rec.Ref, err)
	}
	return xccdf.Field{Name: field, Value: value, Attrs: attrs}, nil
}

// wrapFieldError attaches field/record context, preserving an existing
// FieldMappingError's template detail.
func wrapFieldError(field, ref string, err error) error {
	fe := &FieldMappingError{Field: field, Ref: ref, Err: err}
	if sub, ok := err.(*substitution.SubstitutionError); ok {
		fe.Template = sub.Template
	}
	return fe
}

// readText reads a dotted-path source and applies its transform.
func (m *Mapper) readText(ref SourceRef, ctx *substitution.Context) (string, error) {
	raw, ok := ctx.Lookup(ref.Source)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnresolvedSource, ref.Source)
	}
	return m.Transforms.Apply(ref.Transform, raw)
}

func (m *Mapper) resolveSimple(spec *SimpleSpec, ctx *substitution.Context) (xccdf.Value, []xccdf.Attr, error) {
	out, err := m.readText(SourceRef{Source: spec.Source, Transform: spec.Transform}, ctx)
	if err != nil {
		return nil, nil, err
	}
	if substitution.HasTokens(out) {
		out, err = substitution.Substitute(out, ctx)
		if err != nil {
			return nil, nil, err
		}
	}
	attrs, err := m.resolveAttrs(spec.Attrs, ctx)
	if err != nil {
		return nil, nil, err
	}
	return xccdf.Text(out), attrs, nil
}

// resolveComposite joins non-empty source results. Empty sources are
// dropped, so the separator never leads, trails, or doubles.
func (m *Mapper) resolveComposite(spec *CompositeSpec, ctx *substitution.Context) (xccdf.Value, error) {
	joined, err := m.joinSources(spec.Sources, spec.Separator, ctx)
	if err != nil {
		return nil, err
	}
	return xccdf.Text(joined), nil
}

func (m *Mapper) joinSources(sources []SourceRef, separator string, ctx *substitution.Context) (string, error) {
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		out, err := m.readText(src, ctx)
		if err != nil {
			return "", err
		}
		if out == "" {
			continue
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, separator), nil
}

// resolveEmbedded emits the fixed sub-tag sequence. Optional tags with
// empty content vanish; non-optional empty tags are still emitted.
func (m *Mapper) resolveEmbedded(spec *EmbeddedSpec, ctx *substitution.Context) (xccdf.Value, error) {
	block := make(xccdf.TagBlock, 0, len(spec.Tags))
	for _, tag := range spec.Tags {
		var content string
		var err error
		switch {
		case tag.Content != "":
			content = tag.Content
			if substitution.HasTokens(content) {
				content, err = substitution.Substitute(content, ctx)
			}
		case len(tag.Sources) > 0:
			content, err = m.joinSources(tag.Sources, tag.Separator, ctx)
		}
		if err != nil {
			return nil, err
		}
		if tag.Optional && content == "" {
			continue
		}
		block = append(block, xccdf.Tag{Name: tag.Name, Content: content})
	}
	return block, nil
}

// resolveIdentList renders one identifier per source item. The same
// handler serves every taxonomy; nothing here branches on what the
// items are.
func (m *Mapper) resolveIdentList(spec *IdentListSpec, ctx *substitution.Context) (xccdf.Value, error) {
	items, err := sourceItems(spec.Source, ctx)
	if err != nil {
		return nil, err
	}
	idents := make(xccdf.IdentList, 0, len(items))
	for _, item := range items {
		ictx := ctx.WithBinding("item", item)
		system, err := substitution.Substitute(spec.System, ictx)
		if err != nil {
			return nil, err
		}
		value, err := substitution.Substitute(spec.Value, ictx)
		if err != nil {
			return nil, err
		}
		var attrs map[string]string
		if len(spec.Attrs) > 0 {
			attrs = make(map[string]string, len(spec.Attrs))
			for _, at := range spec.Attrs {
				resolved, err := substitution.Substitute(at.Template, ictx)
				if err != nil {
					return nil, err
				}
				attrs[at.Name] = resolved
			}
		}
		idents = append(idents, xccdf.Ident{System: system, Value: value, Attrs: attrs})
	}
	return idents, nil
}

// resolveNested builds the generic element tree: grouped partitions in
// first-seen order, or direct children when no group_by is set.
func (m *Mapper) resolveNested(spec *NestedSpec, ctx *substitution.Context) (xccdf.Value, error) {
	items, err := sourceItems(spec.Source, ctx)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		if spec.AllowEmpty {
			// Attribute-less root, nothing inside.
			return &xccdf.Element{Name: spec.Root, Namespace: spec.Namespace, Prefix: spec.Prefix}, nil
		}
		return nil, nil
	}

	root := &xccdf.Element{Name: spec.Root, Namespace: spec.Namespace, Prefix: spec.Prefix}
	root.Attrs, err = m.resolveAttrs(spec.RootAttrs, ctx)
	if err != nil {
		return nil, err
	}

	if spec.GroupBy != "" {
		groups, err := m.buildGroups(spec, items, ctx)
		if err != nil {
			return nil, err
		}
		root.Children = groups
		return root, nil
	}

	for _, child := range spec.Children {
		if child.ForEach {
			for _, item := range items {
				elem, err := m.buildNode(child, spec.Prefix, ctx.WithBinding("item", item))
				if err != nil {
					return nil, err
				}
				root.Children = append(root.Children, elem)
			}
			continue
		}
		// A non-repeated child still sees the first item as {item};
		// scalar sources arrive as a single-item list.
		elem, err := m.buildNode(child, spec.Prefix, ctx.WithBinding("item", items[0]))
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, elem)
	}
	return root, nil
}

// buildGroups partitions items by the evaluated group key. Every item
// lands in exactly one partition; partitions appear in first-seen-key
// order.
func (m *Mapper) buildGroups(spec *NestedSpec, items []any, ctx *substitution.Context) ([]*xccdf.Element, error) {
	var order []string
	partitions := make(map[string][]any)
	for _, item := range items {
		key, ok := ctx.WithBinding("item", item).Lookup(spec.GroupBy)
		if !ok {
			return nil, fmt.Errorf("%w: group_by %q", ErrUnresolvedSource, spec.GroupBy)
		}
		if _, seen := partitions[key]; !seen {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], item)
	}

	groups := make([]*xccdf.Element, 0, len(order))
	for _, key := range order {
		members := partitions[key]
		gctx := ctx.WithBinding("group_key", key).WithBinding("group_count", len(members))
		group, err := m.buildNode(spec.Group, spec.Prefix, gctx)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			item, err := m.buildNode(spec.Item, spec.Prefix, gctx.WithBinding("item", member))
			if err != nil {
				return nil, err
			}
			group.Children = append(group.Children, item)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// buildNode renders one element template, recursing into children.
func (m *Mapper) buildNode(spec *NodeSpec, prefix string, ctx *substitution.Context) (*xccdf.Element, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: missing element template", ErrMissingSource)
	}
	elem := &xccdf.Element{Name: spec.Element, Prefix: prefix}
	var err error
	elem.Attrs, err = m.resolveAttrs(spec.Attrs, ctx)
	if err != nil {
		return nil, err
	}
	if spec.Content != "" {
		elem.Content = spec.Content
		if substitution.HasTokens(spec.Content) {
			elem.Content, err = substitution.Substitute(spec.Content, ctx)
			if err != nil {
				return nil, err
			}
		}
	}
	for _, child := range spec.Children {
		sub, err := m.buildNode(child, prefix, ctx)
		if err != nil {
			return nil, err
		}
		elem.Children = append(elem.Children, sub)
	}
	return elem, nil
}

// resolveCorrelation runs lookup and deduplication over the record's
// internal citations.
func (m *Mapper) resolveCorrelation(spec *CorrelationSpec, rec *benchmark.Recommendation, ctx *substitution.Context) (xccdf.Value, error) {
	internal := internalControlIDs(rec)

	var result correlation.Result
	if m.Correlation != nil {
		result = m.Correlation.Deduplicate(internal, rec.NISTControls)
	} else {
		result = correlation.Result{Uncovered: append([]string(nil), rec.NISTControls...)}
	}

	system := spec.System
	if substitution.HasTokens(system) {
		var err error
		system, err = substitution.Substitute(system, ctx)
		if err != nil {
			return nil, err
		}
	}

	set := xccdf.CorrelationSet{References: result.Uncovered}
	for _, id := range result.Identifiers {
		set.Idents = append(set.Idents, xccdf.Ident{System: system, Value: id.Value})
	}
	return set, nil
}

// internalControlIDs collects the record's internal control ids,
// deduplicated in citation order.
func internalControlIDs(rec *benchmark.Recommendation) []string {
	var ids []string
	seen := make(map[string]struct{}, len(rec.Controls))
	for _, c := range rec.Controls {
		if c.Control == "" {
			continue
		}
		if _, dup := seen[c.Control]; dup {
			continue
		}
		seen[c.Control] = struct{}{}
		ids = append(ids, c.Control)
	}
	return ids
}

func (m *Mapper) resolveAttrs(attrs []AttrTemplate, ctx *substitution.Context) ([]xccdf.Attr, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	out := make([]xccdf.Attr, 0, len(attrs))
	for _, at := range attrs {
		value := at.Template
		if substitution.HasTokens(value) {
			var err error
			value, err = substitution.Substitute(value, ctx)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, xccdf.Attr{Name: at.Name, Value: value})
	}
	return out, nil
}

// sourceItems reads a source path as a collection. Scalars become a
// single-item list so "one element per item" specs work over them.
func sourceItems(source string, ctx *substitution.Context) ([]any, error) {
	value, ok := ctx.Value(source)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvedSource, source)
	}
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case []string:
		items := make([]any, len(v))
		for i := range v {
			items[i] = v[i]
		}
		return items, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []any{v}, nil
	default:
		return []any{v}, nil
	}
}
