package ailink

import (
	"errors"
	"strings"

	"github.com/astralmap/astralmap/internal/ailink/prompt"
)

// RenderPrompt renders the system and user templates of a prompt with vars.
// Conditional blocks are resolved first, then {{var}} placeholders.
func RenderPrompt(def *prompt.Prompt, vars map[string]string) (string, string, error) {
	if def == nil {
		return "", "", errors.New("prompt is required")
	}

	render := func(tpl string) string {
		return applyVars(applyConditionals(tpl, vars), vars)
	}
	system, user := render(def.Config.SystemTemplate), render(def.Config.UserTemplate)

	switch {
	case strings.TrimSpace(system) == "":
		return "", "", errors.New("system prompt is required")
	case strings.TrimSpace(user) == "":
		return "", "", errors.New("user prompt is required")
	}
	return system, user, nil
}

// token is either literal text or a {{...}} tag. raw always holds the
// original text so unmatched tags can be written back unchanged.
type token struct {
	raw   string
	tag   string
	isTag bool
}

// tokenize splits a template on {{...}} tags. An unterminated "{{" is
// literal text.
func tokenize(tpl string) []token {
	var tokens []token
	for tpl != "" {
		open := strings.Index(tpl, "{{")
		if open < 0 {
			tokens = append(tokens, token{raw: tpl})
			break
		}
		end := strings.Index(tpl[open+2:], "}}")
		if end < 0 {
			tokens = append(tokens, token{raw: tpl})
			break
		}
		end += open + 2

		if open > 0 {
			tokens = append(tokens, token{raw: tpl[:open]})
		}
		tokens = append(tokens, token{
			raw:   tpl[open : end+2],
			tag:   strings.TrimSpace(tpl[open+2 : end]),
			isTag: true,
		})
		tpl = tpl[end+2:]
	}
	return tokens
}

// applyVars replaces {{name}} placeholders in one pass. Values are never
// rescanned and unknown placeholders are kept.
func applyVars(tpl string, vars map[string]string) string {
	var b strings.Builder
	b.Grow(len(tpl))
	for _, tok := range tokenize(tpl) {
		if value, ok := vars[tok.tag]; ok && tok.isTag {
			b.WriteString(value)
			continue
		}
		b.WriteString(tok.raw)
	}
	return b.String()
}

type ifFrame struct {
	parentOn bool
	cond     bool
	inElse   bool
}

// applyConditionals resolves {{#if var}}...{{else}}...{{/if}} blocks, which
// may nest. A variable counts as set when it is non-blank. Templates with
// unbalanced blocks are returned unchanged.
func applyConditionals(tpl string, vars map[string]string) string {
	var (
		b     strings.Builder
		stack []ifFrame
		on    = true
	)
	for _, tok := range tokenize(tpl) {
		if tok.isTag {
			switch {
			case tok.tag == "#if" || strings.HasPrefix(tok.tag, "#if "):
				cond := strings.TrimSpace(vars[strings.TrimSpace(tok.tag[len("#if"):])]) != ""
				stack = append(stack, ifFrame{parentOn: on, cond: cond})
				on = on && cond
				continue
			case tok.tag == "else" && len(stack) > 0 && !stack[len(stack)-1].inElse:
				top := &stack[len(stack)-1]
				top.inElse = true
				on = top.parentOn && !top.cond
				continue
			case tok.tag == "/if" && len(stack) > 0:
				on = stack[len(stack)-1].parentOn
				stack = stack[:len(stack)-1]
				continue
			}
		}
		if on {
			b.WriteString(tok.raw)
		}
	}
	if len(stack) > 0 {
		return tpl
	}
	return b.String()
}
