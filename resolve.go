package revdom

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"text/template/parse"
)

// TemplateLoader is the external collaborator consumed by the Resolver
// (§6 load_template): given a logical path, it returns the raw template
// source, or a TemplateNotFound-flavored error.
type TemplateLoader interface {
	Load(path string) (string, error)
}

// extendsDirective matches a single inheritance directive at the very top
// of a template source, of the form:
//
//	{{/* extends "base.html" */}}
//
// This is the only piece of the Resolver's contract that is recognized
// before any AST parsing happens, because Go's text/template lexer
// discards comments rather than retaining them as parse-tree nodes - there
// is nothing for an AST walk to find here. Everything else the Resolver
// does (locating block/define boundaries, substituting overrides) is
// AST-based, per §4.1's key design decision.
var extendsDirective = regexp.MustCompile(`^\s*\{\{\s*/\*\s*extends\s+"([^"]+)"\s*\*/\s*\}\}\s*\n?`)

// Resolver flattens template inheritance (§4.1) into canonical source.
type Resolver struct {
	Loader TemplateLoader
}

// NewResolver builds a Resolver over the given loader.
func NewResolver(loader TemplateLoader) *Resolver {
	return &Resolver{Loader: loader}
}

// Resolve implements the §4.1 `resolve(root_path) → canonical_source`
// operation. It supports inheritance chains of arbitrary depth: each level
// may itself extend a further ancestor. A cycle in the resolution graph
// fails with KindCircularInheritance; a missing source at any level fails
// with KindTemplateNotFound.
func (r *Resolver) Resolve(rootPath string) (string, error) {
	tmplSet, mainName, err := r.build(rootPath, map[string]bool{})
	if err != nil {
		return "", err
	}

	main := tmplSet.Lookup(mainName)
	if main == nil || main.Tree == nil || main.Tree.Root == nil {
		return "", newErr(KindTemplateNotFound, fmt.Sprintf("no executable content for %q", rootPath), nil)
	}

	byName := make(map[string]*template.Template, len(tmplSet.Templates()))
	for _, t := range tmplSet.Templates() {
		byName[t.Name()] = t
	}

	var buf bytes.Buffer
	if err := flattenInto(main.Tree.Root, byName, &buf); err != nil {
		return "", newErr(KindTemplateNotFound, "flattening template chain", err)
	}
	return buf.String(), nil
}

// build recursively resolves path's ancestor chain into a single
// *template.Template set whose named templates carry the most-derived
// override for each block name, and whose mainName identifies the
// base-most level's executable root (only a base template carries page
// scaffolding; a child that extends something is expected to contain only
// block overrides).
func (r *Resolver) build(path string, visited map[string]bool) (*template.Template, string, error) {
	if visited[path] {
		return nil, "", newErr(KindCircularInheritance, fmt.Sprintf("template %q participates in a cycle", path), nil)
	}
	next := make(map[string]bool, len(visited)+1)
	for k := range visited {
		next[k] = true
	}
	next[path] = true

	src, err := r.Loader.Load(path)
	if err != nil {
		return nil, "", newErr(KindTemplateNotFound, fmt.Sprintf("loading template %q", path), err)
	}

	parentPath, body, hasParent := stripExtends(src)
	if !hasParent {
		tmpl, err := template.New(path).Parse(body)
		if err != nil {
			return nil, "", newErr(KindParseError, fmt.Sprintf("parsing base template %q", path), err)
		}
		return tmpl, path, nil
	}

	parentSet, mainName, err := r.build(parentPath, next)
	if err != nil {
		return nil, "", err
	}

	merged, err := parentSet.Clone()
	if err != nil {
		return nil, "", newErr(KindParseError, fmt.Sprintf("cloning template set for %q", path), err)
	}
	// Re-parsing body's {{define "name"}}...{{end}} blocks into the cloned
	// set redefines any same-named template the parent chain already
	// registered - this IS the override mechanism (text/template.Parse:
	// "Templates can be redefined in successive calls to Parse").
	if _, err := merged.New(path).Parse(body); err != nil {
		return nil, "", newErr(KindParseError, fmt.Sprintf("parsing overrides in %q", path), err)
	}
	return merged, mainName, nil
}

// stripExtends recognizes the leading inheritance directive, returning the
// parent path and the remaining source with the directive removed.
func stripExtends(src string) (parentPath, rest string, ok bool) {
	m := extendsDirective.FindStringSubmatchIndex(src)
	if m == nil {
		return "", src, false
	}
	parentPath = src[m[2]:m[3]]
	rest = src[:m[0]] + src[m[1]:]
	return parentPath, rest, true
}

// flattenInto walks a parsed template AST and writes the flattened,
// canonical source to buf: every {{template "name" ...}} invocation
// (including the ones implicitly generated by {{block}}) is inlined with
// the most-derived definition of that name, while every other construct -
// variable placeholders, conditionals, loops, filters - is preserved
// verbatim so a downstream evaluator produces identical output whether or
// not the source used inheritance. Adapted from the teacher's
// template_flatten.go walkAndFlatten/formatPipe/formatCommand.
func flattenInto(node parse.Node, templates map[string]*template.Template, buf *bytes.Buffer) error {
	if node == nil {
		return nil
	}
	switch n := node.(type) {
	case *parse.ListNode:
		for _, child := range n.Nodes {
			if err := flattenInto(child, templates, buf); err != nil {
				return err
			}
		}
	case *parse.TextNode:
		buf.Write(n.Text)
	case *parse.ActionNode:
		buf.WriteString("{{")
		buf.WriteString(formatPipe(n.Pipe))
		buf.WriteString("}}")
	case *parse.IfNode:
		buf.WriteString("{{if ")
		buf.WriteString(formatPipe(n.Pipe))
		buf.WriteString("}}")
		if err := flattenInto(n.List, templates, buf); err != nil {
			return err
		}
		if n.ElseList != nil {
			buf.WriteString("{{else}}")
			if err := flattenInto(n.ElseList, templates, buf); err != nil {
				return err
			}
		}
		buf.WriteString("{{end}}")
	case *parse.RangeNode:
		buf.WriteString("{{range ")
		buf.WriteString(formatPipe(n.Pipe))
		buf.WriteString("}}")
		if err := flattenInto(n.List, templates, buf); err != nil {
			return err
		}
		if n.ElseList != nil {
			buf.WriteString("{{else}}")
			if err := flattenInto(n.ElseList, templates, buf); err != nil {
				return err
			}
		}
		buf.WriteString("{{end}}")
	case *parse.WithNode:
		buf.WriteString("{{with ")
		buf.WriteString(formatPipe(n.Pipe))
		buf.WriteString("}}")
		if err := flattenInto(n.List, templates, buf); err != nil {
			return err
		}
		if n.ElseList != nil {
			buf.WriteString("{{else}}")
			if err := flattenInto(n.ElseList, templates, buf); err != nil {
				return err
			}
		}
		buf.WriteString("{{end}}")
	case *parse.TemplateNode:
		ref, ok := templates[n.Name]
		if !ok || ref.Tree == nil || ref.Tree.Root == nil {
			return fmt.Errorf("block %q has no definition", n.Name)
		}
		return flattenInto(ref.Tree.Root, templates, buf)
	default:
		buf.WriteString(n.String())
	}
	return nil
}

func formatPipe(pipe *parse.PipeNode) string {
	if pipe == nil {
		return ""
	}
	var buf bytes.Buffer
	if len(pipe.Decl) > 0 {
		for i, decl := range pipe.Decl {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(decl.String())
		}
		buf.WriteString(" := ")
	}
	for i, cmd := range pipe.Cmds {
		if i > 0 {
			buf.WriteString(" | ")
		}
		buf.WriteString(formatCommand(cmd))
	}
	return buf.String()
}

func formatCommand(cmd *parse.CommandNode) string {
	if cmd == nil {
		return ""
	}
	var buf bytes.Buffer
	for i, arg := range cmd.Args {
		if i > 0 {
			buf.WriteString(" ")
		}
		switch a := arg.(type) {
		case *parse.FieldNode:
			buf.WriteString(a.String())
		case *parse.IdentifierNode:
			buf.WriteString(a.Ident)
		case *parse.StringNode:
			buf.WriteString(fmt.Sprintf("%q", a.Text))
		case *parse.NumberNode:
			buf.WriteString(a.String())
		case *parse.BoolNode:
			buf.WriteString(fmt.Sprintf("%v", a.True))
		case *parse.DotNode:
			buf.WriteString(".")
		case *parse.NilNode:
			buf.WriteString("nil")
		case *parse.PipeNode:
			buf.WriteString("(")
			buf.WriteString(formatPipe(a))
			buf.WriteString(")")
		default:
			buf.WriteString(arg.String())
		}
	}
	return buf.String()
}

// MapLoader is an in-memory TemplateLoader keyed by logical path, useful
// for tests and for small embedded-template applications.
type MapLoader map[string]string

func (m MapLoader) Load(path string) (string, error) {
	src, ok := m[path]
	if !ok {
		return "", fmt.Errorf("no template registered at %q", path)
	}
	return src, nil
}
