// Package selector resolves selection-pattern strings against a scanned
// model graph. It supports exact match, wildcard, tag, path, and
// upstream/downstream traversal operators.
package selector

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/datascribe-labs/datascribe/pkg/core"
)

// Kind is the parsed operator kind of one pattern.
type Kind int

const (
	KindExact Kind = iota
	KindWildcard
	KindTag
	KindPath
	KindUpstream
	KindDownstream
	KindBoth
)

// Pattern is one parsed selection pattern.
type Pattern struct {
	Raw  string
	Kind Kind
	// Arg is the identifier, glob, or tag name with operators stripped.
	Arg string
}

// Metadata supplies the compiled-manifest facts needed by tag: and path:
// patterns. When nil, those patterns resolve to the empty set rather than
// erroring.
type Metadata interface {
	// ModelTags returns the declared tags for a model, or nil.
	ModelTags(name string) []string
	// ModelPath returns the project-relative file path for a model, or "".
	ModelPath(name string) string
}

// Parse splits a selection string into patterns. Tokens are separated by
// commas or whitespace; empty tokens are dropped.
func Parse(selection string) ([]Pattern, error) {
	fields := strings.FieldsFunc(selection, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	patterns := make([]Pattern, 0, len(fields))
	for _, raw := range fields {
		p, err := parseOne(raw)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func parseOne(raw string) (Pattern, error) {
	p := Pattern{Raw: raw}

	arg := raw
	leading := strings.HasPrefix(arg, "+")
	if leading {
		arg = strings.TrimPrefix(arg, "+")
	}
	trailing := strings.HasSuffix(arg, "+")
	if trailing {
		arg = strings.TrimSuffix(arg, "+")
	}

	if arg == "" {
		return p, &core.ValidationError{Field: "select", Message: fmt.Sprintf("malformed pattern %q", raw)}
	}

	switch {
	case leading && trailing:
		p.Kind = KindBoth
	case leading:
		p.Kind = KindUpstream
	case trailing:
		p.Kind = KindDownstream
	case strings.HasPrefix(arg, "tag:"):
		p.Kind = KindTag
		arg = strings.TrimPrefix(arg, "tag:")
	case strings.HasPrefix(arg, "path:"):
		p.Kind = KindPath
		arg = strings.TrimPrefix(arg, "path:")
	case strings.Contains(arg, "*"):
		p.Kind = KindWildcard
	default:
		p.Kind = KindExact
	}

	if arg == "" {
		return p, &core.ValidationError{Field: "select", Message: fmt.Sprintf("malformed pattern %q", raw)}
	}
	p.Arg = arg
	return p, nil
}

// Select resolves inclusion patterns against the graph, unions the results,
// and subtracts the models matched by the exclusion patterns. Exclusion
// always wins, regardless of pattern order. The result is sorted by name.
func Select(graph *core.ModelGraph, include, exclude []string, meta Metadata) ([]string, error) {
	included, err := resolveAll(graph, include, meta)
	if err != nil {
		return nil, err
	}
	excluded, err := resolveAll(graph, exclude, meta)
	if err != nil {
		return nil, err
	}

	for name := range excluded {
		delete(included, name)
	}

	names := make([]string, 0, len(included))
	for name := range included {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func resolveAll(graph *core.ModelGraph, raws []string, meta Metadata) (map[string]bool, error) {
	set := make(map[string]bool)
	for _, raw := range raws {
		patterns, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		for _, p := range patterns {
			matched, err := resolve(graph, p, meta)
			if err != nil {
				return nil, err
			}
			for name := range matched {
				set[name] = true
			}
		}
	}
	return set, nil
}

func resolve(graph *core.ModelGraph, p Pattern, meta Metadata) (map[string]bool, error) {
	switch p.Kind {
	case KindExact:
		set := make(map[string]bool)
		if _, ok := graph.Get(p.Arg); ok {
			set[p.Arg] = true
		}
		return set, nil

	case KindWildcard:
		return resolveWildcard(graph, p.Arg)

	case KindTag:
		set := make(map[string]bool)
		if meta == nil {
			return set, nil
		}
		for _, name := range graph.Names() {
			for _, tag := range meta.ModelTags(name) {
				if tag == p.Arg {
					set[name] = true
					break
				}
			}
		}
		return set, nil

	case KindPath:
		set := make(map[string]bool)
		if meta == nil {
			return set, nil
		}
		for _, name := range graph.Names() {
			mp := meta.ModelPath(name)
			if mp == "" {
				continue
			}
			ok, err := path.Match(p.Arg, mp)
			if err != nil {
				return nil, &core.ValidationError{Field: "select", Message: fmt.Sprintf("bad path glob %q", p.Arg)}
			}
			if ok {
				set[name] = true
			}
		}
		return set, nil

	case KindUpstream:
		return traverse(graph, p.Arg, upstreamEdges(graph)), nil

	case KindDownstream:
		return traverse(graph, p.Arg, downstreamEdges(graph)), nil

	case KindBoth:
		up := traverse(graph, p.Arg, upstreamEdges(graph))
		for name := range traverse(graph, p.Arg, downstreamEdges(graph)) {
			up[name] = true
		}
		return up, nil
	}

	return nil, &core.ValidationError{Field: "select", Message: fmt.Sprintf("unknown pattern kind for %q", p.Raw)}
}

func resolveWildcard(graph *core.ModelGraph, glob string) (map[string]bool, error) {
	// Anchored: '*' expands to '.*', everything else matches literally.
	pattern := "^" + strings.ReplaceAll(regexp.QuoteMeta(glob), `\*`, ".*") + "$"
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &core.ValidationError{Field: "select", Message: fmt.Sprintf("bad wildcard %q", glob)}
	}

	set := make(map[string]bool)
	for _, name := range graph.Names() {
		if re.MatchString(name) {
			set[name] = true
		}
	}
	return set, nil
}

// edgeFunc returns the neighbors of one model along a traversal direction.
type edgeFunc func(name string) []string

func upstreamEdges(graph *core.ModelGraph) edgeFunc {
	return func(name string) []string {
		if m, ok := graph.Get(name); ok {
			return m.Refs
		}
		return nil
	}
}

func downstreamEdges(graph *core.ModelGraph) edgeFunc {
	return graph.Dependents
}

// traverse walks breadth-first from start, inclusive. The visited set keeps
// a model from being expanded more than once, so cyclic graphs terminate.
func traverse(graph *core.ModelGraph, start string, edges edgeFunc) map[string]bool {
	visited := make(map[string]bool)
	if _, ok := graph.Get(start); !ok {
		return visited
	}

	queue := []string{start}
	visited[start] = true
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range edges(current) {
			if visited[next] {
				continue
			}
			if _, ok := graph.Get(next); !ok {
				// Dangling reference to a model that was not scanned.
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return visited
}
