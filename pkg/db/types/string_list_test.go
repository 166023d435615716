package dbtypes

import "testing"

func TestStringListValueAndScan(t *testing.T) {
	v, err := StringList{"ana", "ben"}.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != `["ana","ben"]` {
		t.Fatalf("unexpected value %v", v)
	}

	var got StringList
	if err := got.Scan([]byte(`["ana","ben"]`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 || got[0] != "ana" || got[1] != "ben" {
		t.Fatalf("unexpected scan result %v", got)
	}
}

func TestStringListEmpty(t *testing.T) {
	v, err := StringList(nil).Value()
	if err != nil || v != "[]" {
		t.Fatalf("expected [] got %v err=%v", v, err)
	}
	var got StringList
	if err := got.Scan(nil); err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", got, err)
	}
	if err := got.Scan(42); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
