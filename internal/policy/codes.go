package policy

// Filter-evaluation result codes, per the match_filter contract. Codes
// >= CodeDunno denote "could not determine" rather than a concrete
// admit/reject outcome, and propagate specially through boolean
// composition (see evalAnd/evalOr in filter.go).
const (
	CodeOK                = 0
	CodeASNMismatch       = 4
	CodeAsSetMiss         = 5
	CodeAsSetUndefined    = 6
	CodePeerASMismatch    = 7
	CodePrefixRangeMiss   = 8
	CodeBooleanFail       = 9
	CodeFilterSetMissing  = 10
	CodeRouteSetMiss      = 11
	CodeRegexFail         = 13
	CodeEmptyFilter       = 14
	CodeDunno             = 20
	CodeUnparseable       = 20
	CodeRegexUnresolvable = 21
	CodeCommunity         = 22
)

func isDunno(code int) bool { return code >= CodeDunno }
