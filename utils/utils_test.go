package utils

import "testing"

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		10.005:  10.01,
		10.004:  10.0,
		0:       0,
		-1.2349: -1.23,
	}
	for in, want := range cases {
		if got := Round2(in); got != want {
			t.Errorf("Round2(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestNormalizeDTO(t *testing.T) {
	type dto struct {
		Name  string
		Price float64
	}
	d := dto{Name: "  Swedish Massage  ", Price: 79.999}
	NormalizeDTO(&d)
	if d.Name != "Swedish Massage" {
		t.Errorf("name not trimmed: %q", d.Name)
	}
	if d.Price != 80.0 {
		t.Errorf("price not rounded: %v", d.Price)
	}
}

func TestNormalizePtrDTO(t *testing.T) {
	name := "  Hot Stone  "
	price := 120.004
	type dto struct {
		Name  *string
		Price *float64
		Note  *string
	}
	d := dto{Name: &name, Price: &price}
	NormalizePtrDTO(&d)
	if *d.Name != "Hot Stone" {
		t.Errorf("name not trimmed: %q", *d.Name)
	}
	if *d.Price != 120.0 {
		t.Errorf("price not rounded: %v", *d.Price)
	}
	if d.Note != nil {
		t.Error("nil fields must stay nil")
	}
}

func TestUpdatesFromPtrDTO(t *testing.T) {
	name := "Aromatherapy"
	type dto struct {
		Name     *string  `json:"name"`
		Price    *float64 `json:"price"`
		Internal *string  `json:"-"`
	}
	updates := UpdatesFromPtrDTO(&dto{Name: &name})
	if len(updates) != 1 || updates["name"] != "Aromatherapy" {
		t.Errorf("unexpected updates map: %v", updates)
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault(" 25 ", 50); got != 25 {
		t.Errorf("got %d", got)
	}
	if got := ParseIntDefault("junk", 50); got != 50 {
		t.Errorf("got %d", got)
	}
	if got := ParseIntDefault("-3", 50); got != 50 {
		t.Errorf("negative must fall back, got %d", got)
	}
}
