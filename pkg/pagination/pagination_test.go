package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestWindowSequence(t *testing.T) {
	w := FirstWindow(1000)
	if w.Offset != 0 || w.Limit != 1000 {
		t.Fatalf("unexpected first window %+v", w)
	}
	w = w.Next().Next()
	if w.Offset != 2000 || w.Limit != 1000 {
		t.Fatalf("unexpected third window %+v", w)
	}
	if w.IsLast(1000) {
		t.Fatal("a full page should not end the sequence")
	}
	if !w.IsLast(500) || !w.IsLast(0) {
		t.Fatal("a short page should end the sequence")
	}
	if got := FirstWindow(0); got.Limit != 1 {
		t.Fatalf("expected non-positive size to clamp to 1, got %+v", got)
	}
}

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit {
		t.Fatal("expected default limit")
	}
	if NormalizeLimit(500) != MaxLimit {
		t.Fatal("expected max limit")
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatal("expected buffer of one")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || out.ID != in.ID {
		t.Fatalf("cursor mismatch: %+v vs %+v", out, in)
	}
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %+v %v", c, err)
	}
	if _, err := ParseCursor("not-base64!"); err == nil {
		t.Fatal("expected decode error")
	}
}
