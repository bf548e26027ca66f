package check

import (
	"github.com/irraudit/bgpcrunch/internal/ipaddr"
	"github.com/irraudit/bgpcrunch/internal/policy"
	"github.com/irraudit/bgpcrunch/internal/rpsl"
)

// Path-check hop codes. Stable integers so they can be written to the
// text reports unchanged.
const (
	HopOK             = 0
	HopPreCheckFailed = -1
	HopUncheckable    = 1
	HopOutsideRegion  = 2

	hopImportBase = 300
	hopExportBase = 400
)

// HopResult is the verdict for one AS-hop on a checked path.
type HopResult struct {
	ASN  uint32
	Code int
}

// PathResult is the outcome of walking one best-path vector's full
// AS-path against the aut-num directory.
type PathResult struct {
	Hops          []HopResult
	WholeInRegion bool
}

// CheckPath walks asPath hop by hop, resolving each hop's aut-num
// object and checking its import/export rules against its neighbours
// in the path. observerASN stands in for the AS that received the
// route directly from the path's leftmost hop; nil if not configured.
//
// A path with no ASN hops at all cannot be walked; this is reported as
// a single HopPreCheckFailed sentinel rather than an empty hop list,
// so callers never have to special-case "no hops" separately from
// "one uncheckable hop".
func CheckPath(prefix ipaddr.Prefix, asPath ipaddr.AsPath, dirs *policy.Dirs, isIPv6 bool, observerASN *uint32) PathResult {
	hops := asPath.Asns
	if len(hops) == 0 {
		return PathResult{Hops: []HopResult{{Code: HopPreCheckFailed}}, WholeInRegion: false}
	}

	result := PathResult{WholeInRegion: true}
	for i, asn := range hops {
		var previousAS *uint32
		if i+1 < len(hops) {
			previousAS = &hops[i+1]
		}
		var nextAS *uint32
		if i > 0 {
			nextAS = &hops[i-1]
		} else {
			nextAS = observerASN
		}

		code := checkHop(prefix, asPath, asn, previousAS, nextAS, dirs, isIPv6)
		if code == HopOutsideRegion {
			result.WholeInRegion = false
		}
		result.Hops = append(result.Hops, HopResult{ASN: asn, Code: code})
	}
	return result
}

func checkHop(prefix ipaddr.Prefix, asPath ipaddr.AsPath, asn uint32, previousAS, nextAS *uint32, dirs *policy.Dirs, isIPv6 bool) int {
	autnum, ok := dirs.AutNums.Lookup(asnToken(asn))
	if !ok {
		return HopOutsideRegion
	}

	if previousAS != nil && *previousAS != asn {
		rules := append(append([]rpsl.Rule{}, autnum.ImportRules...), autnum.MPImportRules...)
		if applied, residual := evaluateRules(rules, *previousAS, prefix, asPath, dirs, isIPv6); residual != policy.CodeOK || !applied {
			if !applied {
				return hopImportBase
			}
			return hopImportBase + residual
		}
	}

	if nextAS != nil && *nextAS != asn {
		rules := append(append([]rpsl.Rule{}, autnum.ExportRules...), autnum.MPExportRules...)
		if applied, residual := evaluateRules(rules, *nextAS, prefix, asPath, dirs, isIPv6); residual != policy.CodeOK || !applied {
			if !applied {
				return hopExportBase
			}
			return hopExportBase + residual
		}
	}

	return HopOK
}

// evaluateRules runs MatchRule over rules against neighborASN,
// returning immediately on the first rule that admits (code 0).
// Otherwise applied reports whether any rule's subject even resolved
// to neighborASN — the three RuleCode* gate codes mean "not a
// candidate for this neighbour", not a genuine filter outcome — and
// residual carries the largest genuine filter code observed among the
// rules that did apply, feeding the 300/400+residual scheme.
func evaluateRules(rules []rpsl.Rule, neighborASN uint32, prefix ipaddr.Prefix, asPath ipaddr.AsPath, dirs *policy.Dirs, isIPv6 bool) (applied bool, residual int) {
	for _, r := range rules {
		code := policy.MatchRule(r, neighborASN, prefix, asPath, dirs, isIPv6)
		if code == policy.CodeOK {
			return true, policy.CodeOK
		}
		if code <= policy.RuleCodeGateMax {
			continue
		}
		applied = true
		if code > residual {
			residual = code
		}
	}
	return applied, residual
}
