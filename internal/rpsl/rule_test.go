package rpsl

import "testing"

func TestRule_Parse_SimpleImport(t *testing.T) {
	r := NewRule(RuleImport, "from AS1234 accept ANY", false)
	pr, err := r.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pr.AFI != "IPV4.UNICAST" {
		t.Fatalf("want fixed IPV4.UNICAST AFI, got %q", pr.AFI)
	}
	if len(pr.Factors) != 1 {
		t.Fatalf("want 1 factor, got %d: %+v", len(pr.Factors), pr.Factors)
	}
	if pr.Factors[0].Subject != "AS1234" || pr.Factors[0].Filter != "ANY" {
		t.Fatalf("unexpected factor: %+v", pr.Factors[0])
	}
}

func TestRule_Parse_MultiProtocolAFI(t *testing.T) {
	r := NewRule(RuleImport, "afi ipv6.unicast from AS1234 accept ANY", true)
	pr, err := r.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if pr.AFI != "IPV6.UNICAST" {
		t.Fatalf("want IPV6.UNICAST, got %q", pr.AFI)
	}
}

func TestRule_Parse_SharedFilterAcrossMultipleFactors(t *testing.T) {
	r := NewRule(RuleImport, "from AS1 from AS2 accept ANY", false)
	pr, err := r.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pr.Factors) != 2 {
		t.Fatalf("want 2 factors, got %d: %+v", len(pr.Factors), pr.Factors)
	}
	for _, f := range pr.Factors {
		if f.Filter != "ANY" {
			t.Fatalf("want shared ANY filter on every factor, got %+v", f)
		}
	}
	if pr.Factors[0].Subject != "AS1" || pr.Factors[1].Subject != "AS2" {
		t.Fatalf("unexpected subjects: %+v", pr.Factors)
	}
}

func TestRule_Parse_BracedPerFactorFilters(t *testing.T) {
	r := NewRule(RuleImport, "{from AS1 accept AS-FOO; from AS2 accept AS-BAR}", false)
	pr, err := r.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pr.Factors) != 2 {
		t.Fatalf("want 2 factors, got %d: %+v", len(pr.Factors), pr.Factors)
	}
	if pr.Factors[0].Subject != "AS1" || pr.Factors[0].Filter != "AS-FOO" {
		t.Fatalf("unexpected factor 0: %+v", pr.Factors[0])
	}
	if pr.Factors[1].Subject != "AS2" || pr.Factors[1].Filter != "AS-BAR" {
		t.Fatalf("unexpected factor 1: %+v", pr.Factors[1])
	}
}

func TestRule_Parse_DefaultWithoutFilterFallsBackToNetworksAny(t *testing.T) {
	r := NewRule(RuleDefault, "to AS1234", false)
	pr, err := r.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pr.Factors) != 1 {
		t.Fatalf("want 1 factor, got %d", len(pr.Factors))
	}
	if pr.Factors[0].Filter != "ANY" {
		t.Fatalf("want filterBody(NETWORKS ANY) == ANY, got %q", pr.Factors[0].Filter)
	}
}

func TestRule_Parse_ExportSelectorTO(t *testing.T) {
	r := NewRule(RuleExport, "to AS1234 announce AS-EXAMPLE", false)
	pr, err := r.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(pr.Factors) != 1 || pr.Factors[0].Subject != "AS1234" || pr.Factors[0].Filter != "AS-EXAMPLE" {
		t.Fatalf("unexpected: %+v", pr.Factors)
	}
}

func TestRule_Parse_UnbalancedBracesErrors(t *testing.T) {
	r := NewRule(RuleImport, "{from AS1 accept ANY", false)
	if _, err := r.Parse(); err == nil {
		t.Fatal("want error for unbalanced braces")
	}
}
