// Copyright © 2018 Intel Corporation
//
// SPDX-License-Identifier: GPL-3.0-only

package size

import "testing"

func TestParseUnits(t *testing.T) {
	tests := []struct {
		str  string
		want Size
	}{
		{"0", 0},
		{"1024", 1024},
		{"1K", K},
		{"10M", 10 * M},
		{"2G", 2 * G},
		{"1T", T},
		{"1.5G", Size(1.5 * float64(G))},
	}

	for _, curr := range tests {
		got, err := Parse(curr.str)
		if err != nil {
			t.Fatalf("Parse(%q): %v", curr.str, err)
		}
		if got != curr.want {
			t.Fatalf("Parse(%q) = %d, want %d", curr.str, got, curr.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("not-a-size"); err == nil {
		t.Fatal("expected an error for an invalid size string")
	}
}

func TestArithmetic(t *testing.T) {
	a := 10 * M
	b := 4 * M

	if got := a.Add(b); got != 14*M {
		t.Fatalf("Add: got %d, want %d", got, 14*M)
	}

	if got := a.Sub(b); got != 6*M {
		t.Fatalf("Sub: got %d, want %d", got, 6*M)
	}

	if got := a.MulScalar(2); got != 20*M {
		t.Fatalf("MulScalar: got %d, want %d", got, 20*M)
	}

	if got := a.DivScalar(b); got != 2.5 {
		t.Fatalf("DivScalar: got %f, want 2.5", got)
	}
}

func TestDivScalarByZeroPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected DivScalar by zero to panic")
		}
	}()

	_ = Size(100).DivScalar(0)
}

func TestCmp(t *testing.T) {
	if Size(1).Cmp(Size(2)) != -1 {
		t.Fatal("expected 1 < 2")
	}
	if Size(2).Cmp(Size(1)) != 1 {
		t.Fatal("expected 2 > 1")
	}
	if Size(2).Cmp(Size(2)) != 0 {
		t.Fatal("expected 2 == 2")
	}
}

func TestRoundUpDown(t *testing.T) {
	extent := 4 * M

	if got := (10 * M).RoundUpTo(extent); got != 12*M {
		t.Fatalf("RoundUpTo: got %d, want %d", got, 12*M)
	}

	if got := (10 * M).RoundDownTo(extent); got != 8*M {
		t.Fatalf("RoundDownTo: got %d, want %d", got, 8*M)
	}

	if got := (12 * M).RoundUpTo(extent); got != 12*M {
		t.Fatalf("RoundUpTo on an exact multiple: got %d, want %d", got, 12*M)
	}
}

func TestStringRoundTrip(t *testing.T) {
	tests := []Size{10 * M, 2 * G, T, 512 * B}

	for _, s := range tests {
		str := s.String()
		parsed, err := Parse(str)
		if err != nil {
			t.Fatalf("Parse(%q): %v", str, err)
		}
		if parsed != s {
			t.Fatalf("round-trip %d -> %q -> %d", s, str, parsed)
		}
	}
}

func TestHumanReadableForcedUnit(t *testing.T) {
	str, err := HumanReadable(10*G, "M", -1)
	if err != nil {
		t.Fatalf("HumanReadable: %v", err)
	}
	if str != "10240M" {
		t.Fatalf("got %q, want %q", str, "10240M")
	}
}
