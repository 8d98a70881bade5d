package geo

import (
	"fmt"

	"github.com/akhenakh/mgrs"
)

// ToMGRS converts a lat/lng to an MGRS string. Precision 1-5 maps to
// 10km..1m; out-of-range precision defaults to 1m.
func ToMGRS(lat, lon float64, precision int) (string, error) {
	if precision < 1 || precision > 5 {
		precision = 5
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", fmt.Errorf("coordinates out of range: lat=%f, lon=%f", lat, lon)
	}
	result, err := mgrs.LatLngToMGRS(lat, lon, precision)
	if err != nil {
		return "", fmt.Errorf("MGRS conversion failed: %w", err)
	}
	return result, nil
}
