package value

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Form identifies how a Number holds its value.
type Form uint8

const (
	// IntForm is an exact signed 64-bit integer.
	IntForm Form = iota
	// FloatForm is an IEEE-754 double.
	FloatForm
	// DecimalForm is a literal that neither int64 nor float64 can hold;
	// only its text is kept.
	DecimalForm
)

func (f Form) String() string {
	switch f {
	case IntForm:
		return "int"
	case FloatForm:
		return "float"
	case DecimalForm:
		return "decimal"
	default:
		return "unknown"
	}
}

// bigPrec is the mantissa precision used when numbers of different forms
// have to be compared.
const bigPrec = 512

// Number is the numeric form of a JSON number. Parsed numbers keep their
// source literal so they can be written back byte for byte.
type Number struct {
	form Form
	i    int64
	f    float64
	lit  string
}

// IntNumber returns an exact integer number with no literal.
func IntNumber(i int64) Number {
	return Number{form: IntForm, i: i}
}

// FloatNumber returns a floating point number with no literal.
func FloatNumber(f float64) Number {
	return Number{form: FloatForm, f: f}
}

// ParseNumber classifies a JSON number literal. The literal is retained.
func ParseNumber(lit string) (Number, error) {
	if !ValidNumberLiteral(lit) {
		return Number{}, fmt.Errorf("invalid number literal %q", lit)
	}
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Number{form: IntForm, i: i, lit: lit}, nil
		}
		return Number{form: DecimalForm, lit: lit}, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil || math.IsInf(f, 0) {
		return Number{form: DecimalForm, lit: lit}, nil
	}
	return Number{form: FloatForm, f: f, lit: lit}, nil
}

// ValidNumberLiteral reports whether s matches the JSON number grammar.
func ValidNumberLiteral(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	if i >= len(s) {
		return false
	}
	switch {
	case s[i] == '0':
		i++
	case s[i] >= '1' && s[i] <= '9':
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	return i == len(s)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Form returns the representation of n.
func (n Number) Form() Form { return n.form }

// Literal returns the retained source text, or "" for computed numbers.
func (n Number) Literal() string { return n.lit }

// WithoutLiteral returns n with its source text dropped.
func (n Number) WithoutLiteral() Number {
	if n.form == DecimalForm {
		return n
	}
	n.lit = ""
	return n
}

// Int64 returns the exact integer value of n, if it has one that fits.
func (n Number) Int64() (int64, bool) {
	switch n.form {
	case IntForm:
		return n.i, true
	case FloatForm:
		if n.f == math.Trunc(n.f) && n.f >= math.MinInt64 && n.f < math.MaxInt64 {
			return int64(n.f), true
		}
		return 0, false
	default:
		bf, ok := n.bigFloat()
		if !ok || !bf.IsInt() {
			return 0, false
		}
		i, acc := bf.Int64()
		return i, acc == big.Exact
	}
}

// Uint64 returns the exact unsigned value of n, if it has one that fits.
func (n Number) Uint64() (uint64, bool) {
	if i, ok := n.Int64(); ok {
		if i < 0 {
			return 0, false
		}
		return uint64(i), true
	}
	bf, ok := n.bigFloat()
	if !ok || !bf.IsInt() || bf.Sign() < 0 {
		return 0, false
	}
	u, acc := bf.Uint64()
	return u, acc == big.Exact
}

// Float64 returns the nearest float64; decimals out of range become ±Inf.
func (n Number) Float64() float64 {
	switch n.form {
	case IntForm:
		return float64(n.i)
	case FloatForm:
		return n.f
	default:
		f, _ := strconv.ParseFloat(n.lit, 64)
		return f
	}
}

// IsInteger reports whether n has an integral value.
func (n Number) IsInteger() bool {
	switch n.form {
	case IntForm:
		return true
	case FloatForm:
		return !math.IsInf(n.f, 0) && n.f == math.Trunc(n.f)
	default:
		bf, ok := n.bigFloat()
		return ok && bf.IsInt()
	}
}

func (n Number) isNaN() bool {
	return n.form == FloatForm && math.IsNaN(n.f)
}

// IsFinite reports whether n can be written as a JSON number.
func (n Number) IsFinite() bool {
	return n.form != FloatForm || !(math.IsNaN(n.f) || math.IsInf(n.f, 0))
}

func (n Number) bigFloat() (*big.Float, bool) {
	bf := new(big.Float).SetPrec(bigPrec)
	switch n.form {
	case IntForm:
		bf.SetInt64(n.i)
	case FloatForm:
		if math.IsNaN(n.f) {
			return nil, false
		}
		bf.SetFloat64(n.f)
	default:
		if _, ok := bf.SetString(n.lit); !ok {
			return nil, false
		}
	}
	return bf, true
}

// Cmp compares the numeric values of n and m and returns -1, 0 or +1.
// NaN orders before every other number.
func (n Number) Cmp(m Number) int {
	if n.form == IntForm && m.form == IntForm {
		switch {
		case n.i < m.i:
			return -1
		case n.i > m.i:
			return 1
		}
		return 0
	}
	a, aok := n.bigFloat()
	b, bok := m.bigFloat()
	switch {
	case !aok && !bok:
		return strings.Compare(n.lit, m.lit)
	case !aok:
		return -1
	case !bok:
		return 1
	}
	return a.Cmp(b)
}

// Equal reports numeric equality; 1, 1.0 and 1e0 are equal.
func (n Number) Equal(m Number) bool {
	if n.isNaN() || m.isNaN() {
		return false
	}
	return n.Cmp(m) == 0
}

// StrictEqual also requires the same form and the same literal text.
func (n Number) StrictEqual(m Number) bool {
	return n.form == m.form && n.lit == m.lit && n.Equal(m)
}

// String returns the literal when present, otherwise the shortest text.
func (n Number) String() string {
	return n.Format(0)
}

// Format renders n. A retained literal is returned verbatim; computed
// floats use prec significant digits, or the shortest exact form when
// prec <= 0. Integral floats keep a fractional part so they read back as
// floats.
func (n Number) Format(prec int) string {
	if n.lit != "" {
		return n.lit
	}
	switch n.form {
	case IntForm:
		return strconv.FormatInt(n.i, 10)
	case FloatForm:
		if prec <= 0 {
			prec = -1
		}
		s := strconv.FormatFloat(n.f, 'g', prec, 64)
		if math.IsNaN(n.f) || math.IsInf(n.f, 0) {
			return s
		}
		if !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	default:
		return n.lit
	}
}
