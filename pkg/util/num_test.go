package util

import "testing"

func TestParseNumSuffixes(t *testing.T) {
	cases := map[string]float64{
		"1.5B":    1.5e9,
		"$300M":   300e6,
		"2,500":   2500,
		"45K":     45000,
		"1.2T":    1.2e12,
		"-3.5%":   -3.5,
		"+12.5%":  12.5,
		"1234.56": 1234.56,
	}
	for in, want := range cases {
		got, ok := ParseNum(in)
		if !ok {
			t.Fatalf("ParseNum(%q) not ok", in)
		}
		if got != want {
			t.Fatalf("ParseNum(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseNumInvalid(t *testing.T) {
	for _, in := range []string{"", "N/A", "--", "abc"} {
		if _, ok := ParseNum(in); ok {
			t.Fatalf("ParseNum(%q) should fail", in)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(120, 0, 100) != 100 {
		t.Fatal("clamp upper")
	}
	if Clamp(-5, 0, 100) != 0 {
		t.Fatal("clamp lower")
	}
	if Clamp(42, 0, 100) != 42 {
		t.Fatal("clamp identity")
	}
}
