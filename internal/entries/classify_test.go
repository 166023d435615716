package entries

import (
	"testing"

	"github.com/angelmondragon/countsheet-backend/pkg/enums"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		count  *int
		onHand *int
		want   enums.CountStatus
	}{
		{nil, ptr(5), enums.CountStatusUnset},
		{ptr(5), ptr(5), enums.CountStatusExact},
		{ptr(15), ptr(5), enums.CountStatusNear},
		{ptr(0), ptr(10), enums.CountStatusNear},
		{ptr(16), ptr(5), enums.CountStatusModerate},
		{ptr(25), ptr(5), enums.CountStatusModerate},
		{ptr(26), ptr(5), enums.CountStatusFar},
		{ptr(0), ptr(21), enums.CountStatusFar},
		{ptr(0), nil, enums.CountStatusFar},
	}
	for _, tc := range cases {
		if got := Classify(tc.count, tc.onHand); got != tc.want {
			t.Fatalf("Classify(%v, %v) = %s, want %s", deref(tc.count), deref(tc.onHand), got, tc.want)
		}
	}
}

func TestNormalizeCount(t *testing.T) {
	if NormalizeCount("   ") != nil {
		t.Fatalf("expected blank to clear")
	}
	if NormalizeCount("4x") != nil {
		t.Fatalf("expected garbled to clear")
	}
	if got := NormalizeCount(" 4.0 "); got == nil || *got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
}

func TestDifference(t *testing.T) {
	if Difference(nil, ptr(3)) != nil {
		t.Fatalf("expected nil difference for absent count")
	}
	if got := Difference(ptr(2), ptr(5)); *got != -3 {
		t.Fatalf("expected -3, got %d", *got)
	}
	if got := Difference(ptr(7), nil); *got != 7 {
		t.Fatalf("expected count when on hand absent, got %d", *got)
	}
}

func ptr(v int) *int { return &v }

func deref(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
