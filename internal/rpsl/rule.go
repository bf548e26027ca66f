package rpsl

import (
	"fmt"
	"regexp"
	"strings"
)

// RuleKind distinguishes an import, export or default line. default
// lines are filed with the import rules by newAutNumObject (autnum.go),
// and a default rule with no filter clause gets an implicit NETWORKS ANY
// filter in decomposeExpression.
type RuleKind int

const (
	RuleImport RuleKind = iota
	RuleExport
	RuleDefault
)

// Factor is one normalised (subject, filter) pair extracted from a rule
// expression.
type Factor struct {
	Subject string
	Filter  string
}

// ParsedRule is the lazily-computed decomposition of a Rule: the address
// family the rule applies to, plus its ordered factor list.
type ParsedRule struct {
	AFI     string
	Factors []Factor
}

// Rule is one import/export/default (or mp-*) line of an aut-num
// object. The three rule kinds share all behaviour, so one Kind-tagged
// struct covers them.
type Rule struct {
	Kind          RuleKind
	MultiProtocol bool
	Text          string
}

// NewRule builds a Rule from a raw attribute value. RPSL keywords and
// set names are case-insensitive, so the whole line is upper-cased.
func NewRule(kind RuleKind, text string, mp bool) Rule {
	return Rule{Kind: kind, MultiProtocol: mp, Text: strings.ToUpper(strings.TrimSpace(text))}
}

var afiRegex = regexp.MustCompile(`^AFI\s+(\S+)\s+(.*)$`)

func extractAFI(text string, mp bool) (afi, rest string) {
	if !mp {
		return "IPV4.UNICAST", text
	}
	if m := afiRegex.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}
	return "ANY", text
}

var filterKeywords = []string{"ACCEPT ", "ANNOUNCE ", "NETWORKS "}

// splitOnFilterKeyword finds the first (in priority order ACCEPT >
// ANNOUNCE > NETWORKS, then leftmost) filter-introducing keyword in s
// and splits there.
func splitOnFilterKeyword(s string) (sel, fltr string, ok bool) {
	for _, kw := range filterKeywords {
		if i := strings.Index(s, kw); i >= 0 {
			return s[:i], s[i:], true
		}
	}
	return s, "", false
}

// splitSelectors splits a selector region on its leading FROM/TO token
// into one selector string per occurrence.
func splitSelectors(sel string) []string {
	sel = strings.TrimSpace(sel)
	var keyword string
	switch {
	case strings.Contains(sel, "FROM "):
		keyword = "FROM "
	case strings.Contains(sel, "TO "):
		keyword = "TO "
	default:
		return nil
	}
	parts := strings.Split(sel, keyword)
	out := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, keyword+p)
		}
	}
	return out
}

var subjectRegex = regexp.MustCompile(`^(?:FROM|TO)\s+(\S+)`)

// splitTopLevelSemicolons splits a factor-list region on ';', the
// separator RFC 2622 factors use inside a braced expression.
func splitTopLevelSemicolons(s string) []string {
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(s)}
	}
	return out
}

// decomposeExpression turns rule text (after AFI stripping) into an
// ordered factor list. It finds the outermost brace-balanced group (if
// any), discarding any trailing REFINE/EXCEPT clause, splits the
// remaining factor-list region on top-level ';', and for each chunk
// lacking its own ACCEPT/ANNOUNCE/NETWORKS clause falls back to the
// filter of the last chunk in the list that has one, whether it comes
// before or after (or ANY when no chunk has one) — a direct generalisation of _decomposeExpression's single
// first-keyword split to the common multi-factor, differing-filter case
// that split could not handle.
func decomposeExpression(text string, isDefault bool) ([]Factor, error) {
	text = strings.TrimSpace(text)
	inner := text

	if strings.HasPrefix(inner, "{") {
		depth := 0
		closeIdx := -1
		for i, r := range inner {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					closeIdx = i
				}
			}
			if closeIdx >= 0 {
				break
			}
		}
		if closeIdx < 0 {
			return nil, fmt.Errorf("rpsl: unbalanced braces in rule: %s", text)
		}
		inner = strings.TrimSpace(inner[1 : closeIdx])
	}

	chunks := splitTopLevelSemicolons(inner)

	type parsedChunk struct {
		sel, fltr string
		hasFltr   bool
	}
	parsed := make([]parsedChunk, len(chunks))
	lastFilter := ""
	for i, c := range chunks {
		sel, fltr, ok := splitOnFilterKeyword(c)
		parsed[i] = parsedChunk{sel: sel, fltr: fltr, hasFltr: ok}
		if ok {
			lastFilter = fltr
		}
	}

	var factors []Factor
	for _, p := range parsed {
		fltr := p.fltr
		if !p.hasFltr {
			fltr = lastFilter
			if fltr == "" {
				if isDefault {
					fltr = "NETWORKS ANY"
				} else {
					fltr = "ANY"
				}
			}
		}
		selectors := splitSelectors(p.sel)
		if selectors == nil {
			// No FROM/TO token at all: treat the whole selector region
			// itself as a bare selector so a malformed line degrades to
			// a single unresolvable factor instead of vanishing.
			selectors = []string{strings.TrimSpace(p.sel)}
		}
		for _, sel := range selectors {
			m := subjectRegex.FindStringSubmatch(sel)
			subject := strings.TrimSpace(sel)
			if m != nil {
				subject = m[1]
			}
			factors = append(factors, Factor{Subject: subject, Filter: strings.TrimSpace(filterBody(fltr))})
		}
	}
	return factors, nil
}

// filterBody strips a leading ACCEPT/ANNOUNCE/NETWORKS keyword, leaving
// only the filter expression itself.
func filterBody(fltr string) string {
	for _, kw := range filterKeywords {
		if strings.HasPrefix(fltr, kw) {
			return strings.TrimSpace(fltr[len(kw):])
		}
	}
	return strings.TrimSpace(fltr)
}

// Parse lazily decomposes the rule into its AFI and factor list.
func (r Rule) Parse() (ParsedRule, error) {
	afi, rest := extractAFI(r.Text, r.MultiProtocol)
	factors, err := decomposeExpression(rest, r.Kind == RuleDefault)
	if err != nil {
		return ParsedRule{}, err
	}
	return ParsedRule{AFI: afi, Factors: factors}, nil
}
