package sanitizer

import (
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reLockUnsafe = regexp.MustCompile(`[:\s]+`)
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func dropWhitespace(s string) string {
	return reWhitespace.ReplaceAllString(s, "")
}

// SanitizeCouponCode gives the canonical form a coupon is stored and locked under.
func SanitizeCouponCode(code string) string {
	return Pipeline{trim, dropWhitespace, upper}.Apply(code)
}

func SanitizeAirportCode(code string) string {
	return Pipeline{trim, upper}.Apply(code)
}

// SanitizeID trims an identifier and replaces the characters that would
// change the shape of a lock key.
func SanitizeID(id string) string {
	p := Pipeline{
		trim,
		func(s string) string { return reLockUnsafe.ReplaceAllString(s, "_") },
	}
	return p.Apply(id)
}

func SanitizeName(name string) string {
	return TrimAndNormalize(name)
}

func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
