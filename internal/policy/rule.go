package policy

import (
	"fmt"
	"strings"

	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/rpsl"
)

// Rule-matcher result codes that sit above the filter-evaluator's own
// table: they describe why a rule was never even evaluated against a
// filter.
const (
	RuleCodeWrongFamily         = 1
	RuleCodeUnresolvableSubject = 2
	RuleCodeNoFactorApplied     = 3

	// RuleCodeGateMax is the largest of the three gate codes above.
	// Callers that scan a rule list for the "did any rule apply"
	// residual (the 300/400+residual hop-code scheme) treat any code
	// <= RuleCodeGateMax as "this rule was not even a candidate", not
	// as a genuine filter outcome to remember.
	RuleCodeGateMax = RuleCodeNoFactorApplied
)

// MatchRule resolves which factor of rule applies to neighborASN and, on
// the first applicable factor, returns MatchFilter's verdict unchanged —
// the first syntactically applicable factor wins, with no attempt to
// combine multiple factors.
func MatchRule(rule rpsl.Rule, neighborASN uint32, prefix ipaddr.Prefix, asPath ipaddr.AsPath, dirs *Dirs, isIPv6 bool) int {
	if isIPv6 && !rule.MultiProtocol {
		return RuleCodeWrongFamily
	}

	parsed, err := rule.Parse()
	if err != nil {
		return RuleCodeWrongFamily
	}
	if !afiMatches(parsed.AFI, isIPv6) {
		return RuleCodeWrongFamily
	}

	neighborToken := fmt.Sprintf("AS%d", neighborASN)
	resolvedAny := false

	for _, f := range parsed.Factors {
		subject := strings.ToUpper(strings.TrimSpace(f.Subject))

		switch {
		case asnLiteralRegex.MatchString(subject):
			resolvedAny = true
			if subject == neighborToken {
				return MatchFilter(f.Filter, prefix, asPath, dirs, isIPv6)
			}

		case rpsl.IsAsSetName(subject):
			resolvedAny = true
			if set, ok := dirs.AsSets.Lookup(subject); ok {
				if set.MatchRecursive(neighborToken, dirs.AsSets, map[string]bool{}) {
					return MatchFilter(f.Filter, prefix, asPath, dirs, isIPv6)
				}
			}

		case rpsl.IsPeeringSetName(subject):
			resolvedAny = true
			if set, ok := dirs.PeeringSets.Lookup(subject); ok {
				if set.ContainsNeighbor(neighborToken, dirs.PeeringSets, map[string]bool{}) {
					return MatchFilter(f.Filter, prefix, asPath, dirs, isIPv6)
				}
			}
		}
	}

	if !resolvedAny {
		return RuleCodeUnresolvableSubject
	}
	return RuleCodeNoFactorApplied
}

func afiMatches(afi string, isIPv6 bool) bool {
	switch afi {
	case "ANY", "ANY.UNICAST":
		return true
	case "IPV4.UNICAST":
		return !isIPv6
	case "IPV6.UNICAST":
		return isIPv6
	default:
		return false
	}
}
