package geo

import "testing"

func TestHaversineKm(t *testing.T) {
	// Marrakech (31.6295, -7.9811) to Casablanca (33.5731, -7.5898) ~ 215-225 km
	d := HaversineKm(31.6295, -7.9811, 33.5731, -7.5898)
	if d < 210 || d > 230 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineKm_SamePoint(t *testing.T) {
	if d := HaversineKm(34.0331, -5.0003, 34.0331, -5.0003); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestWithin(t *testing.T) {
	// about 0.0003 degrees of latitude is ~33 m
	if !Within(31.6295, -7.9811, 31.6298, -7.9811, 50) {
		t.Fatal("expected points to be within 50 m")
	}
	if Within(31.6295, -7.9811, 31.6305, -7.9811, 50) {
		t.Fatal("expected points ~111 m apart to be outside 50 m")
	}
}

func TestValidLatLng(t *testing.T) {
	cases := []struct {
		lat, lng float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{90.1, 0, false},
		{0, -180.5, false},
	}
	for _, c := range cases {
		if got := ValidLatLng(c.lat, c.lng); got != c.want {
			t.Errorf("ValidLatLng(%v, %v) = %v, want %v", c.lat, c.lng, got, c.want)
		}
	}
}
