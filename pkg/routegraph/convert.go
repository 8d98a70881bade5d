package routegraph

import "github.com/NERVsystems/scenicloops/pkg/geo"

func geoPointOf(p gobPoint) geo.Point {
	return geo.Point{Lat: p.Lat, Lng: p.Lng}
}
