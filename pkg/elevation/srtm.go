package elevation

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// SRTMSource loads tiles from a directory of SRTM ".hgt" files, the
// standard one-arc-second (3601x3601) or three-arc-second (1201x1201)
// big-endian int16 grid format. File names follow the USGS convention,
// e.g. "N37W123.hgt" for the tile covering 37N-38N, 123W-122W.
//
// This is the concrete TileSource behind the process-wide Oracle in
// production; spec.md §1 places actual SRTM *download* out of scope
// (an external data provider), so this only reads tiles already present
// on disk under dir.
type SRTMSource struct {
	dir string
}

// NewSRTMSource constructs a source rooted at dir.
func NewSRTMSource(dir string) *SRTMSource {
	return &SRTMSource{dir: dir}
}

// LoadTile reads and decodes the .hgt file covering the 1x1 degree cell
// whose south-west corner is (tileLat, tileLon). A missing file is
// reported as an all-missing tile rather than an error, matching
// spec.md §4.B's "missing readings are reported as missing" contract —
// SRTM has no coverage over large stretches of ocean.
func (s *SRTMSource) LoadTile(ctx context.Context, tileLat, tileLon int) (*Tile, error) {
	path := filepath.Join(s.dir, hgtFileName(tileLat, tileLon))

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Tile{TileLat: tileLat, TileLon: tileLon, SamplesPerSide: 0, Samples: nil}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading srtm tile %s: %w", path, err)
	}

	n := samplesPerSideFor(len(data))
	if n == 0 {
		return nil, fmt.Errorf("srtm tile %s has unexpected size %d bytes", path, len(data))
	}

	samples := make([]int16, n*n)
	for i := range samples {
		hi, lo := data[2*i], data[2*i+1]
		v := int16(uint16(hi)<<8 | uint16(lo))
		samples[i] = v
	}

	return &Tile{TileLat: tileLat, TileLon: tileLon, SamplesPerSide: n, Samples: samples}, nil
}

// samplesPerSideFor infers the grid resolution from file size: SRTM1
// ships 3601x3601 samples, SRTM3 ships 1201x1201, both 2 bytes/sample.
func samplesPerSideFor(byteLen int) int {
	n := int(math.Round(math.Sqrt(float64(byteLen / 2))))
	if n*n*2 == byteLen {
		return n
	}
	return 0
}

// hgtFileName builds the USGS-convention file name for the tile whose
// south-west corner is (tileLat, tileLon).
func hgtFileName(tileLat, tileLon int) string {
	ns := 'N'
	lat := tileLat
	if lat < 0 {
		ns = 'S'
		lat = -lat
	}
	ew := 'E'
	lon := tileLon
	if lon < 0 {
		ew = 'W'
		lon = -lon
	}
	return fmt.Sprintf("%c%02d%c%03d.hgt", ns, lat, ew, lon)
}
