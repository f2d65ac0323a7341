package transaction

import (
	"regexp"
	"testing"
)

func TestNewReferenceFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^ELE-\d{13}-[0-9A-F]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref := NewReference(ProductElectricity)
		if !pattern.MatchString(ref) {
			t.Fatalf("unexpected reference %q", ref)
		}
		if seen[ref] {
			t.Fatalf("duplicate reference %q", ref)
		}
		seen[ref] = true
	}

	if got := RefundReference("AIR-1-ABC"); got != "REF-AIR-1-ABC" {
		t.Fatalf("unexpected refund reference %q", got)
	}
}
