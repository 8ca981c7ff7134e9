package dsl

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// condition evaluates when expressions against the graph variables.
//
// Grammar: comparisons (== != > < >= <=) joined by && and ||, unary !,
// parentheses, number and quoted string literals, true/false, and variable
// paths such as env or limits.max resolved with gjson.
type condition struct {
	doc []byte
}

func newCondition(vars map[string]any) (*condition, error) {
	doc, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("encode variables: %w", err)
	}
	return &condition{doc: doc}, nil
}

// Eval reports whether expr holds. An empty expression holds.
func (c *condition) Eval(expr string) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}
	toks, err := scan(expr)
	if err != nil {
		return false, err
	}
	p := &condParser{toks: toks, doc: c.doc}
	v, err := p.or()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, fmt.Errorf("unexpected %q in %q", p.toks[p.pos].text, expr)
	}
	return truthy(v), nil
}

type tokKind uint8

const (
	tokNum tokKind = iota
	tokStr
	tokIdent
	tokOp
	tokOpen
	tokClose
)

type tok struct {
	kind tokKind
	text string
}

func scan(expr string) ([]tok, error) {
	rs := []rune(expr)
	var out []tok
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			out = append(out, tok{tokOpen, "("})
			i++
		case r == ')':
			out = append(out, tok{tokClose, ")"})
			i++
		case r == '"' || r == '\'':
			j := i + 1
			var b strings.Builder
			for j < len(rs) && rs[j] != r {
				if rs[j] == '\\' && j+1 < len(rs) {
					j++
				}
				b.WriteRune(rs[j])
				j++
			}
			if j >= len(rs) {
				return nil, fmt.Errorf("unterminated string at %d", i)
			}
			out = append(out, tok{tokStr, b.String()})
			i = j + 1
		case strings.ContainsRune("=!<>&|", r):
			if i+1 < len(rs) {
				if two := string(rs[i : i+2]); two == "==" || two == "!=" || two == ">=" || two == "<=" || two == "&&" || two == "||" {
					out = append(out, tok{tokOp, two})
					i += 2
					continue
				}
			}
			if r == '&' || r == '|' || r == '=' {
				return nil, fmt.Errorf("unexpected %q at %d", r, i)
			}
			out = append(out, tok{tokOp, string(r)})
			i++
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1]) && operandExpected(out)):
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			out = append(out, tok{tokNum, string(rs[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '.') {
				j++
			}
			out = append(out, tok{tokIdent, string(rs[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("unexpected %q at %d", r, i)
		}
	}
	return out, nil
}

func operandExpected(prev []tok) bool {
	if len(prev) == 0 {
		return true
	}
	k := prev[len(prev)-1].kind
	return k == tokOp || k == tokOpen
}

type condParser struct {
	toks []tok
	pos  int
	doc  []byte
}

func (p *condParser) next(kind tokKind, text string) bool {
	if p.pos < len(p.toks) && p.toks[p.pos].kind == kind && p.toks[p.pos].text == text {
		p.pos++
		return true
	}
	return false
}

func (p *condParser) or() (any, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.next(tokOp, "||") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
	return left, nil
}

func (p *condParser) and() (any, error) {
	left, err := p.compare()
	if err != nil {
		return nil, err
	}
	for p.next(tokOp, "&&") {
		right, err := p.compare()
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
	return left, nil
}

func (p *condParser) compare() (any, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		if p.next(tokOp, op) {
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			return compareValues(left, op, right), nil
		}
	}
	return left, nil
}

func (p *condParser) unary() (any, error) {
	if p.next(tokOp, "!") {
		v, err := p.unary()
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	return p.primary()
}

func (p *condParser) primary() (any, error) {
	if p.pos >= len(p.toks) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	t := p.toks[p.pos]
	p.pos++
	switch t.kind {
	case tokNum:
		return strconv.ParseFloat(t.text, 64)
	case tokStr:
		return t.text, nil
	case tokIdent:
		switch t.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		res := gjson.GetBytes(p.doc, t.text)
		if !res.Exists() {
			return nil, nil
		}
		return res.Value(), nil
	case tokOpen:
		v, err := p.or()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.toks) || p.toks[p.pos].kind != tokClose {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	return nil, fmt.Errorf("unexpected %q", t.text)
}

// compareValues compares numerically when both sides are numbers, as text
// otherwise. A missing variable only equals another missing one.
func compareValues(left any, op string, right any) bool {
	if left == nil || right == nil {
		switch op {
		case "==":
			return left == nil && right == nil
		case "!=":
			return left != nil || right != nil
		}
		return false
	}

	var cmp int
	lf, lok := number(left)
	rf, rok := number(right)
	if lok && rok {
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(fmt.Sprint(left), fmt.Sprint(right))
	}

	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		return b != "" && b != "false" && b != "0"
	case []any:
		return len(b) > 0
	}
	return true
}
