package geo

import (
	"math"
	"testing"
)

func TestHaversineDistanceKnownPoints(t *testing.T) {
	tests := []struct {
		name                 string
		lat1, lon1           float64
		lat2, lon2           float64
		wantMeters           float64
		toleranceFractional  float64
	}{
		{"same point", 40.0, -105.0, 40.0, -105.0, 0, 0.01},
		{"one degree latitude", 0, 0, 1, 0, 111195, 0.01},
		{"equator quarter globe", 0, 0, 0, 90, 10007543, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				if got > 1 {
					t.Fatalf("HaversineDistance() = %f, want ~0", got)
				}
				return
			}
			delta := math.Abs(got-tt.wantMeters) / tt.wantMeters
			if delta > tt.toleranceFractional {
				t.Fatalf("HaversineDistance() = %f, want %f (+/- %.0f%%)", got, tt.wantMeters, tt.toleranceFractional*100)
			}
		})
	}
}

func TestBearingDegCardinalDirections(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{"due north", Point{Lat: 0, Lng: 0}, Point{Lat: 1, Lng: 0}, 0},
		{"due east", Point{Lat: 0, Lng: 0}, Point{Lat: 0, Lng: 1}, 90},
		{"due south", Point{Lat: 1, Lng: 0}, Point{Lat: 0, Lng: 0}, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearingDeg(tt.p1, tt.p2)
			if math.Abs(got-tt.want) > 1.0 {
				t.Fatalf("BearingDeg() = %f, want ~%f", got, tt.want)
			}
		})
	}
}

func TestUniformSamplesCoversEndpoints(t *testing.T) {
	line := []Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}}
	samples := UniformSamples(line, 20000)
	if len(samples) < 2 {
		t.Fatalf("expected at least two samples, got %d", len(samples))
	}
	first, last := samples[0], samples[len(samples)-1]
	if first.CumulativeM != 0 {
		t.Errorf("first sample cumulative = %f, want 0", first.CumulativeM)
	}
	total := GeodesicLength(line)
	if math.Abs(last.CumulativeM-total) > 1 {
		t.Errorf("last sample cumulative = %f, want %f", last.CumulativeM, total)
	}
}

func TestPolygonContainsSquare(t *testing.T) {
	square := []Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 2}, {Lat: 2, Lng: 2}, {Lat: 2, Lng: 0}}
	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{"inside", Point{Lat: 1, Lng: 1}, true},
		{"outside", Point{Lat: 5, Lng: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PolygonContains(square, tt.point); got != tt.want {
				t.Errorf("PolygonContains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToMGRSReturnsNonEmptyString(t *testing.T) {
	s, err := ToMGRS(19.856, 99.816, 5)
	if err != nil {
		t.Fatalf("ToMGRS() error = %v", err)
	}
	if s == "" {
		t.Fatalf("ToMGRS() returned empty string")
	}
}

func TestToMGRSRejectsOutOfRangeCoordinates(t *testing.T) {
	if _, err := ToMGRS(95, 0, 5); err == nil {
		t.Fatalf("expected an error for an out-of-range latitude")
	}
}
