// Package markup converts Trac wiki markup into Gollum flavoured Markdown.
//
// The conversion is an ordered list of rules. Each rule is a pure function
// over the text of the page; the order below is part of the contract because
// several Trac constructs share delimiters:
//
//  1. code-blocks      multi-line {{{ }}} first, so nothing inside is touched
//  2. macros           [[Name]] before links, which also start with "["
//  3. inline-code      single-line {{{ }}} after blocks have been consumed
//  4. headings         ==== before === before == before =
//  5. links            [target label] before auto-links rewrite the label
//  6. auto-links       CamelCase tokens, then the !Escape form is unescaped
//  7. emphasis         ''' before ''
//  8. lists            leading " *" and " 1." per line
//
// Rules that produce finished Markdown (blocks, inline code, macro flags,
// links) stash their output behind placeholders, which are restored after the
// last rule has run. Placeholder runes already present in the page are
// stashed before the first rule. CRLF line endings are kept as they are.
package markup

import (
	"regexp"
	"strings"
)

// Rule is one pass of the pipeline.
type Rule struct {
	Name  string
	apply func(text string, st *stash) string
}

// Converter holds the compiled rule set. It is immutable after New and safe
// for concurrent use.
type Converter struct {
	rules       []Rule
	placeholder *regexp.Regexp
}

// New compiles the rule set.
func New() *Converter {
	headings := make([]Rule, 0, 4)
	for level := 4; level >= 1; level-- {
		headings = append(headings, headingRule(level))
	}

	rules := []Rule{
		{Name: "code-blocks", apply: extractCodeBlocks},
		macroRule(),
		inlineCodeRule(),
	}
	rules = append(rules, headings...)
	rules = append(rules,
		linkRule(),
		autoLinkRule(),
		escapeRule(),
		substitution("strong", `'''(.+?)'''`, "**${1}**"),
		substitution("italic", `''(.+?)''`, "*${1}*"),
		substitution("unordered-list", `(?m)^ \*`, "*"),
		substitution("ordered-list", `(?m)^ (\d+\.)`, "${1}"),
	)

	return &Converter{rules: rules, placeholder: newStashPattern()}
}

// Convert rewrites text. It never fails; input it does not recognise is
// carried through unchanged.
func (c *Converter) Convert(text string) string {
	st := &stash{pattern: c.placeholder}
	text = st.escape(text)
	for _, r := range c.rules {
		text = r.apply(text, st)
	}
	return st.restore(text)
}

// Rules returns the rule names in application order.
func (c *Converter) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

func substitution(name, pattern, repl string) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{
		Name: name,
		apply: func(text string, _ *stash) string {
			return re.ReplaceAllString(text, repl)
		},
	}
}

func macroRule() Rule {
	re := regexp.MustCompile(`\[\[([A-Za-z_][A-Za-z0-9_]*)\]\]`)
	return Rule{
		Name: "macros",
		apply: func(text string, st *stash) string {
			return replaceSubmatches(re, text, func(g []string) string {
				return st.put("**UNSUPPORTED MACRO: " + g[1] + "**")
			})
		},
	}
}

func inlineCodeRule() Rule {
	re := regexp.MustCompile(`\{\{\{([^\n]+?)\}\}\}`)
	return Rule{
		Name: "inline-code",
		apply: func(text string, st *stash) string {
			return replaceSubmatches(re, text, func(g []string) string {
				code := g[1]
				if strings.Contains(code, "`") {
					return st.put("`` " + code + " ``")
				}
				return st.put("`" + code + "`")
			})
		},
	}
}

func headingRule(level int) Rule {
	marks := strings.Repeat("=", level)
	re := regexp.MustCompile(`(?m)^[ \t]*` + marks + `[ \t]+(.+?)[ \t]+` + marks + `(?:[ \t]+#\S+)?[ \t]*(\r?)$`)
	prefix := strings.Repeat("#", level) + " "
	return Rule{
		Name: "heading-" + marks,
		apply: func(text string, _ *stash) string {
			return re.ReplaceAllString(text, prefix+"${1}${2}")
		},
	}
}

func linkRule() Rule {
	re := regexp.MustCompile(`\[(?:wiki:)?([^\s\[\]]+)[ \t]+([^\[\]\n]+?)\]`)
	return Rule{
		Name: "links",
		apply: func(text string, st *stash) string {
			return replaceSubmatches(re, text, func(g []string) string {
				return st.put("[[" + g[2] + "|" + g[1] + "]]")
			})
		},
	}
}

func autoLinkRule() Rule {
	re := regexp.MustCompile(`(^|[^"/!\w])((?:[A-Z][a-z0-9]+){2,})\b`)
	return Rule{
		Name: "auto-links",
		apply: func(text string, st *stash) string {
			return replaceSubmatches(re, text, func(g []string) string {
				return g[1] + st.put("[["+g[2]+"]]")
			})
		},
	}
}

func escapeRule() Rule {
	return substitution("escaped-links", `!((?:[A-Z][a-z0-9]+){2,})`, "${1}")
}

// replaceSubmatches is ReplaceAllStringFunc with access to capture groups.
func replaceSubmatches(re *regexp.Regexp, text string, fn func(groups []string) string) string {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		groups := make([]string, len(m)/2)
		for i := range groups {
			if m[2*i] >= 0 {
				groups[i] = text[m[2*i]:m[2*i+1]]
			}
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(fn(groups))
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
