package query

import "strings"

// RelationSpec is one parsed entry of a relations string.
type RelationSpec struct {
	Name   string
	Fields []string
	Nested []RelationSpec
}

// ParseRelations parses "a,b:x;y,c@d,c@e:z" style strings.
// Plain tokens come first in their order, then "@" groups in first-seen
// order of their base with nested names in append order.
func ParseRelations(raw string) []RelationSpec {
	var plain []RelationSpec
	var grouped []*RelationSpec
	byBase := map[string]*RelationSpec{}

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		base, nested, hasNested := strings.Cut(token, "@")
		spec := parseRelationToken(base)
		if spec.Name == "" {
			continue
		}
		if !hasNested {
			plain = append(plain, spec)
			continue
		}

		g, ok := byBase[spec.Name]
		if !ok {
			g = &RelationSpec{Name: spec.Name}
			byBase[spec.Name] = g
			grouped = append(grouped, g)
		}
		g.Fields = appendUnique(g.Fields, spec.Fields...)
		// "a@b@c" chains: the nested part is parsed the same way
		g.Nested = mergeSpecs(g.Nested, ParseRelations(nested)...)
	}

	out := plain
	for _, g := range grouped {
		out = append(out, *g)
	}
	return out
}

// ApplyRelations registers a preload for every relation in raw.
// Relation names are not checked here; the executor rejects unknown ones.
func ApplyRelations(q *Query, raw string) *Query {
	for _, spec := range ParseRelations(raw) {
		applyRelation(q, spec)
	}
	return q
}

func applyRelation(q *Query, spec RelationSpec) {
	q.Preload(spec.Name, func(pivot *Query) {
		// restriction first, nested preloads after
		if len(spec.Fields) > 0 {
			pivot.Select(spec.Fields...)
		}
		for _, n := range spec.Nested {
			applyRelation(pivot, n)
		}
	})
}

// parseRelationToken splits "name:fieldA;fieldB".
func parseRelationToken(token string) RelationSpec {
	name, fields, _ := strings.Cut(token, ":")
	spec := RelationSpec{Name: strings.TrimSpace(name)}
	for _, f := range strings.Split(fields, ";") {
		if f = strings.TrimSpace(f); f != "" {
			spec.Fields = appendUnique(spec.Fields, f)
		}
	}
	return spec
}

func mergeSpecs(dst []RelationSpec, specs ...RelationSpec) []RelationSpec {
	for _, s := range specs {
		merged := false
		for i := range dst {
			if dst[i].Name == s.Name {
				dst[i].Fields = appendUnique(dst[i].Fields, s.Fields...)
				dst[i].Nested = mergeSpecs(dst[i].Nested, s.Nested...)
				merged = true
				break
			}
		}
		if !merged {
			dst = append(dst, s)
		}
	}
	return dst
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if !contains(list, v) {
			list = append(list, v)
		}
	}
	return list
}
