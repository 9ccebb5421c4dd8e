package market

import (
	"math"
	"testing"
)

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		american int
		want     float64
	}{
		{100, 2.0},
		{150, 2.5},
		{200, 3.0},
		{-110, 1.909090},
		{-150, 1.666666},
		{-200, 1.5},
	}

	for _, tt := range tests {
		got, err := AmericanToDecimal(tt.american)
		if err != nil {
			t.Fatalf("AmericanToDecimal(%d): unexpected error: %v", tt.american, err)
		}
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("AmericanToDecimal(%d) = %f, want %f", tt.american, got, tt.want)
		}
	}

	if _, err := AmericanToDecimal(0); err == nil {
		t.Error("AmericanToDecimal(0) expected error, got nil")
	}
}

func TestDecimalToAmerican(t *testing.T) {
	tests := []struct {
		decimal float64
		want    int
	}{
		{2.0, 100},
		{2.5, 150},
		{3.0, 200},
		{1.909, -110},
		{1.5, -200},
	}

	for _, tt := range tests {
		got, err := DecimalToAmerican(tt.decimal)
		if err != nil {
			t.Fatalf("DecimalToAmerican(%f): unexpected error: %v", tt.decimal, err)
		}
		// Rounding can land one off on either side.
		if diff := got - tt.want; diff < -1 || diff > 1 {
			t.Errorf("DecimalToAmerican(%f) = %d, want %d", tt.decimal, got, tt.want)
		}
	}

	if _, err := DecimalToAmerican(1.0); err == nil {
		t.Error("DecimalToAmerican(1.0) expected error, got nil")
	}
}

func TestImpliedProbability(t *testing.T) {
	tests := []struct {
		decimal float64
		want    float64
	}{
		{2.0, 0.5},
		{4.0, 0.25},
		{1.25, 0.8},
	}

	for _, tt := range tests {
		got, err := ImpliedProbability(tt.decimal)
		if err != nil {
			t.Fatalf("ImpliedProbability(%f): unexpected error: %v", tt.decimal, err)
		}
		if math.Abs(got-tt.want) > 0.0001 {
			t.Errorf("ImpliedProbability(%f) = %f, want %f", tt.decimal, got, tt.want)
		}
	}
}

func TestOppositeSide(t *testing.T) {
	tests := []struct {
		side string
		want string
	}{
		{SideHome, SideAway},
		{SideAway, SideHome},
		{SideOver, SideUnder},
		{SideUnder, SideOver},
		{"draw", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := OppositeSide(tt.side); got != tt.want {
			t.Errorf("OppositeSide(%q) = %q, want %q", tt.side, got, tt.want)
		}
	}
}

func TestQuoteSideOdds(t *testing.T) {
	q := Quote{
		Ticker: "NBA-LAL-BOS-SPREAD",
		Odds:   map[string]float64{SideHome: 1.91, SideAway: 1.91},
		Line:   -4.5,
	}

	if d, ok := q.SideOdds(SideHome); !ok || d != 1.91 {
		t.Errorf("SideOdds(home) = %f, %v; want 1.91, true", d, ok)
	}
	if _, ok := q.SideOdds(SideOver); ok {
		t.Error("SideOdds(over) on a spread quote should be absent")
	}
}
