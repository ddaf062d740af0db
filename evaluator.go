package revdom

import (
	"fmt"
	"html/template"
	"reflect"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CSRFSource is implemented by a render state that carries a CSRF token;
// the {{csrf}} tag looks for it via type assertion rather than requiring a
// fixed state shape.
type CSRFSource interface {
	CSRFToken() string
}

// Evaluator implements the §4.2 evaluation contract on top of html/template,
// whose automatic contextual escaping gives us "auto-escaping by default"
// for free rather than as something we have to build. The canonical source
// produced by Resolver.Resolve is plain Go template text, so Evaluator is
// simply where that text meets a FuncMap of the filters and tags §4.2
// names: case/format filters, CSRF, static asset URLs, and includes.
type Evaluator struct {
	// StaticBaseURL prefixes every {{static "..."}} reference.
	StaticBaseURL string
	// Loader, when set, lets {{include "path" .}} resolve and evaluate a
	// further template inline, sharing this Evaluator's function set.
	Loader TemplateLoader

	extra template.FuncMap
}

// NewEvaluator builds an Evaluator. loader may be nil if the application
// never uses {{include}}.
func NewEvaluator(loader TemplateLoader, staticBaseURL string) *Evaluator {
	return &Evaluator{StaticBaseURL: staticBaseURL, Loader: loader}
}

// WithFunc registers an additional, application-specific filter or tag,
// returning e for chaining.
func (e *Evaluator) WithFunc(name string, fn any) *Evaluator {
	if e.extra == nil {
		e.extra = template.FuncMap{}
	}
	e.extra[name] = fn
	return e
}

// Evaluate substitutes data into canonicalSource and returns the resulting
// HTML. A failure here is always a KindEvaluationError: it is a recoverable
// failure under §7's propagation policy, since the previous baseline is
// untouched.
func (e *Evaluator) Evaluate(canonicalSource string, data any) (string, error) {
	tmpl := template.New("canonical").Funcs(e.builtinFuncs())
	if e.extra != nil {
		tmpl = tmpl.Funcs(e.extra)
	}
	parsed, err := tmpl.Parse(canonicalSource)
	if err != nil {
		return "", newErr(KindEvaluationError, "parsing canonical source", err)
	}

	var buf strings.Builder
	if err := parsed.Execute(&buf, data); err != nil {
		return "", newErr(KindEvaluationError, "executing template", err)
	}
	return buf.String(), nil
}

func (e *Evaluator) builtinFuncs() template.FuncMap {
	return template.FuncMap{
		"csrf": func(data any) string {
			if src, ok := data.(CSRFSource); ok {
				return src.CSRFToken()
			}
			return ""
		},
		"static": func(path string) string {
			return e.StaticBaseURL + strings.TrimPrefix(path, "/")
		},
		"include": func(path string, data any) (template.HTML, error) {
			if e.Loader == nil {
				return "", newErr(KindEvaluationError, fmt.Sprintf("include %q: no loader configured", path), nil)
			}
			resolver := NewResolver(e.Loader)
			src, err := resolver.Resolve(path)
			if err != nil {
				return "", err
			}
			out, err := e.Evaluate(src, data)
			if err != nil {
				return "", err
			}
			return template.HTML(out), nil
		},
		"upper": func(s string) string { return cases.Upper(language.Und).String(s) },
		"lower": func(s string) string { return cases.Lower(language.Und).String(s) },
		"title": func(s string) string { return cases.Title(language.Und).String(s) },
		"truncate": func(n int, s string) string {
			r := []rune(s)
			if len(r) <= n {
				return s
			}
			if n < 0 {
				n = 0
			}
			return string(r[:n]) + "…"
		},
		"dateFormat": func(layout string, t time.Time) string {
			return t.Format(layout)
		},
		"number": func(v any) string {
			p := message.NewPrinter(language.Und)
			switch n := v.(type) {
			case int:
				return p.Sprint(number.Decimal(n))
			case int64:
				return p.Sprint(number.Decimal(n))
			case float64:
				return p.Sprint(number.Decimal(n))
			default:
				return fmt.Sprint(v)
			}
		},
		"first": func(list any) (any, error) {
			v := reflect.ValueOf(list)
			if v.Kind() != reflect.Slice && v.Kind() != reflect.Array || v.Len() == 0 {
				return nil, newErr(KindEvaluationError, "first: empty or non-list value", nil)
			}
			return v.Index(0).Interface(), nil
		},
		"last": func(list any) (any, error) {
			v := reflect.ValueOf(list)
			if v.Kind() != reflect.Slice && v.Kind() != reflect.Array || v.Len() == 0 {
				return nil, newErr(KindEvaluationError, "last: empty or non-list value", nil)
			}
			return v.Index(v.Len() - 1).Interface(), nil
		},
		"join": func(sep string, list any) string {
			v := reflect.ValueOf(list)
			if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
				return fmt.Sprint(list)
			}
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = fmt.Sprint(v.Index(i).Interface())
			}
			return strings.Join(parts, sep)
		},
		"length": func(list any) int {
			v := reflect.ValueOf(list)
			switch v.Kind() {
			case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
				return v.Len()
			default:
				return 0
			}
		},
	}
}
