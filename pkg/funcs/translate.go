package funcs

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"

	vexpr "github.com/goliatone/go-formengine/pkg/visibility/expr"
)

// translate rewrites the JavaScript-isms commonly found in formatter sources
// into expr syntax: template literals become concatenations and strict
// equality operators become plain ones.
func translate(body string) (string, error) {
	var out strings.Builder
	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '\'', '"':
			end, err := skipQuoted(runes, i)
			if err != nil {
				return "", err
			}
			out.WriteString(string(runes[i : end+1]))
			i = end
		case '`':
			expression, end, err := templateLiteral(runes, i)
			if err != nil {
				return "", err
			}
			out.WriteString(expression)
			i = end
		case '=', '!':
			if i+2 < len(runes) && runes[i+1] == '=' && runes[i+2] == '=' {
				out.WriteRune(r)
				out.WriteRune('=')
				i += 2
				continue
			}
			out.WriteRune(r)
		default:
			out.WriteRune(r)
		}
	}
	return out.String(), nil
}

func skipQuoted(runes []rune, start int) (int, error) {
	quote := runes[start]
	for i := start + 1; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			i++
		case quote:
			return i, nil
		}
	}
	return 0, fmt.Errorf("funcs: unterminated string literal")
}

// templateLiteral converts the template starting at runes[start] and returns
// the expression plus the index of the closing backtick.
func templateLiteral(runes []rune, start int) (string, int, error) {
	var parts []string
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, strconv.Quote(text.String()))
			text.Reset()
		}
	}

	for i := start + 1; i < len(runes); i++ {
		switch {
		case runes[i] == '\\' && i+1 < len(runes):
			i++
			text.WriteRune(runes[i])
		case runes[i] == '`':
			flush()
			if len(parts) == 0 {
				return `""`, i, nil
			}
			return "(" + strings.Join(parts, " + ") + ")", i, nil
		case runes[i] == '$' && i+1 < len(runes) && runes[i+1] == '{':
			flush()
			end, err := closingBrace(runes, i+2)
			if err != nil {
				return "", 0, err
			}
			inner, err := translate(string(runes[i+2 : end]))
			if err != nil {
				return "", 0, err
			}
			if strings.TrimSpace(inner) == "" {
				return "", 0, fmt.Errorf("funcs: empty template placeholder")
			}
			parts = append(parts, "str("+inner+")")
			i = end
		default:
			text.WriteRune(runes[i])
		}
	}
	return "", 0, fmt.Errorf("funcs: unterminated template literal")
}

func closingBrace(runes []rune, start int) (int, error) {
	depth := 1
	for i := start; i < len(runes); i++ {
		switch runes[i] {
		case '\'', '"':
			end, err := skipQuoted(runes, i)
			if err != nil {
				return 0, err
			}
			i = end
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("funcs: unterminated template placeholder")
}

func helperOptions() []expr.Option {
	return []expr.Option{
		expr.Function("str", func(params ...any) (any, error) {
			if len(params) == 0 {
				return "", nil
			}
			return vexpr.ToString(params[0]), nil
		}),
		expr.Function("num", func(params ...any) (any, error) {
			if len(params) == 0 {
				return math.NaN(), nil
			}
			n, ok := vexpr.ToNumber(params[0])
			if !ok {
				return math.NaN(), nil
			}
			return n, nil
		}),
		expr.Function("thousands", func(params ...any) (any, error) {
			if len(params) == 0 {
				return "", nil
			}
			sep := ","
			if len(params) > 1 {
				sep = vexpr.ToString(params[1])
			}
			return groupThousands(vexpr.ToString(params[0]), sep), nil
		}),
		expr.Function("regexReplace", func(params ...any) (any, error) {
			if len(params) != 3 {
				return nil, fmt.Errorf("regexReplace expects 3 arguments, got %d", len(params))
			}
			re, err := regexp.Compile(vexpr.ToString(params[1]))
			if err != nil {
				return nil, err
			}
			return re.ReplaceAllString(vexpr.ToString(params[0]), vexpr.ToString(params[2])), nil
		}),
	}
}

// groupThousands inserts sep between digit triples of the integer part.
func groupThousands(number, sep string) string {
	sign := ""
	if strings.HasPrefix(number, "-") || strings.HasPrefix(number, "+") {
		sign, number = number[:1], number[1:]
	}
	intPart, frac, hasFrac := strings.Cut(number, ".")
	if len(intPart) <= 3 {
		return sign + number
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteString(".")
		b.WriteString(frac)
	}
	return sign + b.String()
}
