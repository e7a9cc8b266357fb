package message

import (
	"regexp"
	"strings"

	"github.com/NordCoder/Smsgate/internal/domain/notification"
)

// Filter rewrites the rendered message. original is the template before substitution.
type Filter func(rendered, original string) string

type Engine struct {
	filters []Filter
}

func NewEngine(filters ...Filter) *Engine {
	return &Engine{filters: filters}
}

func (e *Engine) AddFilter(f Filter) {
	if f != nil {
		e.filters = append(e.filters, f)
	}
}

// Render substitutes vars into tmpl in table order. Placeholders with no variable are
// left untouched.
func (e *Engine) Render(tmpl string, vars []notification.Variable) string {
	out := tmpl
	for _, v := range vars {
		if !v.Parameterized() {
			if strings.Contains(out, v.Name) {
				out = strings.ReplaceAll(out, v.Name, v.Resolve())
			}
			continue
		}
		out = replaceParameterized(out, v)
	}
	for _, f := range e.filters {
		out = f(out, tmpl)
	}
	return out
}

func replaceParameterized(s string, v notification.Variable) string {
	if v.Param == nil {
		return s
	}
	prefix := v.Name[:strings.Index(v.Name, "{")]
	re, err := regexp.Compile(regexp.QuoteMeta(prefix) + `(.*?)%`)
	if err != nil {
		return s
	}
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return s
	}
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[0]]; ok {
			continue
		}
		seen[m[0]] = struct{}{}
		s = strings.ReplaceAll(s, m[0], v.Param(paramKey(m[1])))
	}
	return s
}

// paramKey accepts both %order_meta_key% and %order_meta_{key}%.
func paramKey(raw string) string {
	if len(raw) >= 2 && raw[0] == '{' && raw[len(raw)-1] == '}' {
		return raw[1 : len(raw)-1]
	}
	return raw
}
