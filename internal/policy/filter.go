package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/rpsl"
)

// MatchFilter evaluates an RPSL filter expression against one observed
// route, returning a result code from the table in codes.go. guard
// state for AS-SET/route-set/filter-set recursion is fresh per
// top-level call; MatchRule (rule.go) reuses this entrypoint per
// factor.
func MatchFilter(text string, prefix ipaddr.Prefix, asPath ipaddr.AsPath, dirs *Dirs, isIPv6 bool) int {
	return matchFilterGuarded(text, prefix, asPath, dirs, isIPv6, map[string]bool{})
}

func matchFilterGuarded(text string, prefix ipaddr.Prefix, asPath ipaddr.AsPath, dirs *Dirs, isIPv6 bool, guard map[string]bool) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return CodeEmptyFilter
	}

	eval := func(t string) int {
		return matchFilterGuarded(t, prefix, asPath, dirs, isIPv6, guard)
	}

	if orParts := splitTopLevelKeyword(text, "OR"); len(orParts) > 1 {
		result := eval(orParts[0])
		for _, p := range orParts[1:] {
			result = evalOr(result, eval(p))
		}
		return result
	}

	if andParts := splitTopLevelKeyword(text, "AND"); len(andParts) > 1 {
		result := eval(andParts[0])
		for _, p := range andParts[1:] {
			result = evalAnd(result, eval(p))
		}
		return result
	}

	if rest, ok := stripKeywordPrefix(text, "NOT"); ok {
		if eval(rest) != CodeOK {
			return CodeOK
		}
		return CodeBooleanFail
	}

	if stripped, ok := stripOuterParens(text); ok {
		return eval(stripped)
	}

	return evalAtom(text, prefix, asPath, dirs, isIPv6, guard)
}

// evalAnd implements the AND propagation rule: both zero is
// a match; both DUNNO is DUNNO; a DUNNO mixed with a concrete code (zero
// or not) resolves to the DUNNO code, since AND cannot affirm a match it
// cannot fully evaluate; otherwise the first non-zero operand reports
// the failure.
func evalAnd(a, b int) int {
	if a == CodeOK && b == CodeOK {
		return CodeOK
	}
	if isDunno(a) {
		return a
	}
	if isDunno(b) {
		return b
	}
	if a != CodeOK {
		return a
	}
	return b
}

// evalOr implements the OR propagation rule: any admitting
// operand wins outright; if neither admits, a concrete failure beats a
// DUNNO (a known non-match is more informative than "can't tell"); two
// DUNNOs stay DUNNO.
func evalOr(a, b int) int {
	if a == CodeOK || b == CodeOK {
		return CodeOK
	}
	if isDunno(a) && !isDunno(b) {
		return b
	}
	if !isDunno(a) && isDunno(b) {
		return a
	}
	return a
}

var asnLiteralRegex = regexp.MustCompile(`^AS\d+$`)
var communityRegex = regexp.MustCompile(`^COMMUNITY(\.CONTAINS)?\s*\(`)

func evalAtom(text string, prefix ipaddr.Prefix, asPath ipaddr.AsPath, dirs *Dirs, isIPv6 bool, guard map[string]bool) int {
	upper := strings.ToUpper(text)

	switch {
	case upper == "ANY":
		return CodeOK

	case upper == "PEERAS":
		origin, ok := asPath.OriginASN()
		neighbor, nok := asPath.NeighborASN()
		if ok && nok && origin == neighbor {
			return CodeOK
		}
		return CodePeerASMismatch

	case asnLiteralRegex.MatchString(upper):
		n, _ := strconv.ParseUint(upper[2:], 10, 32)
		origin, ok := asPath.OriginASN()
		if ok && uint32(n) == origin {
			return CodeOK
		}
		return CodeASNMismatch

	case strings.HasPrefix(text, "<") && strings.HasSuffix(text, ">"):
		return matchRegexAtom(text[1:len(text)-1], asPath)

	case !strings.ContainsAny(text, " \t") && rpsl.IsAsSetName(upper):
		set, ok := dirs.AsSets.Lookup(upper)
		if !ok {
			return CodeAsSetUndefined
		}
		origin, ok := asPath.OriginASN()
		if !ok {
			return CodeAsSetMiss
		}
		if set.MatchRecursive(fmt.Sprintf("AS%d", origin), dirs.AsSets, cloneGuard(guard)) {
			return CodeOK
		}
		return CodeAsSetMiss

	case strings.HasPrefix(text, "{"):
		return matchPrefixRange(text, prefix)

	case !strings.ContainsAny(text, " \t") && rpsl.IsFilterSetName(upper):
		if guard[upper] {
			return CodeFilterSetMissing
		}
		set, ok := dirs.FilterSets.Lookup(upper)
		if !ok {
			return CodeFilterSetMissing
		}
		sub := cloneGuard(guard)
		sub[upper] = true
		return matchFilterGuarded(set.FilterText(isIPv6), prefix, asPath, dirs, isIPv6, sub)

	case !strings.ContainsAny(text, " \t") && rpsl.IsRouteSetName(upper):
		return matchRouteSet(upper, prefix, asPath, dirs, isIPv6, guard)

	case communityRegex.MatchString(upper):
		return CodeCommunity

	default:
		return matchTokenList(text, prefix, asPath, dirs, isIPv6, guard)
	}
}

func matchTokenList(text string, prefix ipaddr.Prefix, asPath ipaddr.AsPath, dirs *Dirs, isIPv6 bool, guard map[string]bool) int {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return CodeUnparseable
	}
	result := CodeASNMismatch
	for i, tok := range tokens {
		c := evalAtom(tok, prefix, asPath, dirs, isIPv6, guard)
		if i == 0 {
			result = c
		} else {
			result = evalOr(result, c)
		}
		if result == CodeOK {
			return CodeOK
		}
	}
	return CodeASNMismatch
}

func matchRouteSet(name string, prefix ipaddr.Prefix, asPath ipaddr.AsPath, dirs *Dirs, isIPv6 bool, guard map[string]bool) int {
	if guard[name] {
		return CodeRouteSetMiss
	}
	set, ok := dirs.RouteSets.Lookup(name)
	if !ok {
		return CodeRouteSetMiss
	}
	sub := cloneGuard(guard)
	sub[name] = true

	for _, member := range set.MemberTokens(isIPv6) {
		member = strings.TrimSpace(member)
		if member == "" {
			continue
		}
		if looksLikeCIDR(member) {
			if matchPrefixRange("{"+member+"}", prefix) == CodeOK {
				return CodeOK
			}
			continue
		}
		if matchFilterGuarded(member, prefix, asPath, dirs, isIPv6, sub) == CodeOK {
			return CodeOK
		}
	}
	return CodeRouteSetMiss
}

func looksLikeCIDR(s string) bool {
	return strings.Contains(s, "/") || strings.Contains(s, ":")
}

// matchPrefixRange implements the "{ pfx(^range)?, ... }(^range)?"
// prefix-set grammar. The outer range, when present, overrides any
// element range that was not itself set; with no range at all the
// element demands exact prefix-length equality.
func matchPrefixRange(text string, prefix ipaddr.Prefix) int {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return CodePrefixRangeMiss
	}
	closeIdx := strings.LastIndex(text, "}")
	if closeIdx < 0 {
		return CodePrefixRangeMiss
	}
	body := text[1:closeIdx]
	outerRangeText := strings.TrimSpace(text[closeIdx+1:])

	hasOuterRange := false
	outerLow, outerHigh := 0, 0
	if strings.HasPrefix(outerRangeText, "^") {
		if lo, hi, ok := parseRange(outerRangeText[1:], 0); ok {
			outerLow, outerHigh, hasOuterRange = lo, hi, true
		}
	}

	elements := strings.Split(body, ",")
	matched := false
	for _, elem := range elements {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			continue
		}
		cidrText, rangeText := elem, ""
		if idx := strings.IndexByte(elem, '^'); idx >= 0 {
			cidrText, rangeText = elem[:idx], elem[idx+1:]
		}
		cidrText = strings.TrimSpace(cidrText)

		elemPrefix, err := ipaddr.Parse(cidrText)
		if err != nil {
			continue
		}
		low, high := elemPrefix.Bits(), elemPrefix.Bits()
		if rangeText != "" {
			if lo, hi, ok := parseRange(rangeText, elemPrefix.Bits()); ok {
				low, high = lo, hi
			}
		} else if hasOuterRange {
			low, high = outerLow, outerHigh
		}

		if prefix.Family != elemPrefix.Family {
			continue
		}
		if elemPrefix.Contains(prefix) && prefix.Bits() >= low && prefix.Bits() <= high {
			matched = true
			break
		}
	}
	if matched {
		return CodeOK
	}
	return CodePrefixRangeMiss
}

// parseRange parses one of "N", "N-M", "+", "-" (the range suffix after
// '^') against baseLen (the element CIDR's own length).
func parseRange(text string, baseLen int) (low, high int, ok bool) {
	text = strings.TrimSpace(text)
	switch {
	case text == "+":
		return baseLen, 128, true
	case text == "-":
		return baseLen + 1, 128, true
	case strings.Contains(text, "-"):
		parts := strings.SplitN(text, "-", 2)
		lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return lo, hi, true
	default:
		n, err := strconv.Atoi(text)
		if err != nil {
			return 0, 0, false
		}
		return n, n, true
	}
}

// matchRegexAtom implements the best-effort <...> regex evaluation
// against the space-joined AS-path with PEERAS substituted.
func matchRegexAtom(pattern string, asPath ipaddr.AsPath) int {
	if strings.Contains(strings.ToUpper(pattern), "AS-") {
		return CodeRegexUnresolvable
	}
	if asPath.Len() == 0 {
		return CodeRegexFail
	}

	tokens := make([]string, asPath.Len())
	for i, n := range asPath.Asns {
		tokens[i] = fmt.Sprintf("AS%d", n)
	}
	joined := strings.Join(tokens, " ")

	neighbor, _ := asPath.NeighborASN()
	pattern = strings.ReplaceAll(pattern, "PEERAS", fmt.Sprintf("AS%d", neighbor))

	if !strings.HasPrefix(pattern, "^") {
		pattern = ".*" + pattern
	}
	if !strings.HasSuffix(pattern, "$") {
		pattern = pattern + ".*"
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return CodeRegexUnresolvable
	}
	if re.MatchString(joined) {
		return CodeOK
	}
	return CodeRegexFail
}

func cloneGuard(g map[string]bool) map[string]bool {
	out := make(map[string]bool, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

func stripKeywordPrefix(text, keyword string) (string, bool) {
	upper := strings.ToUpper(text)
	if upper == keyword {
		return "", false
	}
	if strings.HasPrefix(upper, keyword+" ") {
		return strings.TrimSpace(text[len(keyword):]), true
	}
	return text, false
}

func stripOuterParens(text string) (string, bool) {
	if !strings.HasPrefix(text, "(") || !strings.HasSuffix(text, ")") {
		return "", false
	}
	depth := 0
	for i, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(text)-1 {
				return "", false
			}
		}
	}
	return strings.TrimSpace(text[1 : len(text)-1]), true
}

// splitTopLevelKeyword splits text on whitespace-bounded occurrences of
// keyword (case-insensitive) that sit outside any {}, <> or ()
// nesting, so a keyword inside a prefix-range group or regex atom is
// never mistaken for a boolean operator.
func splitTopLevelKeyword(text, keyword string) []string {
	depth := 0
	var parts []string
	last := 0
	upper := strings.ToUpper(text)
	kw := strings.ToUpper(keyword)

	i := 0
	for i < len(text) {
		switch text[i] {
		case '{', '<', '(':
			depth++
		case '}', '>', ')':
			depth--
		}
		if depth == 0 && matchesWordAt(upper, kw, i) {
			if boundaryOK(upper, i, len(kw)) {
				parts = append(parts, strings.TrimSpace(text[last:i]))
				i += len(kw)
				last = i
				continue
			}
		}
		i++
	}
	parts = append(parts, strings.TrimSpace(text[last:]))
	return parts
}

func matchesWordAt(upper, kw string, i int) bool {
	return i+len(kw) <= len(upper) && upper[i:i+len(kw)] == kw
}

func boundaryOK(upper string, i, kwLen int) bool {
	beforeOK := i == 0 || upper[i-1] == ' ' || upper[i-1] == '\t'
	afterIdx := i + kwLen
	afterOK := afterIdx == len(upper) || upper[afterIdx] == ' ' || upper[afterIdx] == '\t'
	return beforeOK && afterOK
}
