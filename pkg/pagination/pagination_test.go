package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, MaxLimit + 50: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("LimitWithBuffer(10) = %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	encoded := EncodeCursor(Cursor{Seq: 42})
	decoded, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if decoded == nil || decoded.Seq != 42 {
		t.Fatalf("unexpected cursor %+v", decoded)
	}
}

func TestParseCursorEmpty(t *testing.T) {
	cursor, err := ParseCursor("  ")
	if err != nil || cursor != nil {
		t.Fatalf("expected nil cursor, got %+v err=%v", cursor, err)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, value := range []string{"!!!", "c2VxOmFiYw", "b3RoZXI6MQ"} {
		if _, err := ParseCursor(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestTrimReturnsNextCursorOnlyWhenMoreRows(t *testing.T) {
	seq := func(v int64) int64 { return v }

	page, next := Trim([]int64{1, 2, 3}, 2, seq)
	if len(page) != 2 || page[1] != 2 {
		t.Fatalf("unexpected page %v", page)
	}
	cursor, err := ParseCursor(next)
	if err != nil || cursor == nil || cursor.Seq != 2 {
		t.Fatalf("expected cursor at seq 2, got %+v err=%v", cursor, err)
	}

	page, next = Trim([]int64{1, 2}, 2, seq)
	if len(page) != 2 || next != "" {
		t.Fatalf("expected last page without cursor, got %v %q", page, next)
	}
}
