package coords

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// earthRadiusMeters is the IUGG mean earth radius.
const earthRadiusMeters = 6371008.8

// Generate builds the full coordinate table for a radar at (lat, lon).
//
// Radial r spans the azimuth edge r*res - res/2, so each bin is centred on
// its nominal azimuth. Gate g is the outer edge of the g-th 250 m gate.
// Points are placed on a spherical earth.
func Generate(ctx context.Context, lat, lon float64, size RadialSize) (*Table, error) {
	return generate(ctx, lat, lon, size, MaxDataMomentGates)
}

func generate(ctx context.Context, lat, lon float64, size RadialSize, gates int) (*Table, error) {
	radials := size.Radials()
	res := size.Degrees()
	out := make([]float32, radials*gates*2)

	phi1 := lat * math.Pi / 180
	lambda1 := lon * math.Pi / 180
	sinPhi1, cosPhi1 := math.Sincos(phi1)

	workers := runtime.GOMAXPROCS(0)
	chunk := (radials + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < radials; start += chunk {
		end := min(start+chunk, radials)
		g.Go(func() error {
			for r := start; r < end; r++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				theta := (float64(r)*res - res/2) * math.Pi / 180
				sinTheta, cosTheta := math.Sincos(theta)
				row := out[r*gates*2 : (r+1)*gates*2]
				for gate := 0; gate < gates; gate++ {
					delta := float64((gate+1)*GateLengthMeters) / earthRadiusMeters
					sinDelta, cosDelta := math.Sincos(delta)

					sinPhi2 := sinPhi1*cosDelta + cosPhi1*sinDelta*cosTheta
					phi2 := math.Asin(sinPhi2)
					lambda2 := lambda1 + math.Atan2(sinTheta*sinDelta*cosPhi1, cosDelta-sinPhi1*sinPhi2)

					row[gate*2] = float32(phi2 * 180 / math.Pi)
					row[gate*2+1] = float32(normalizeLongitude(lambda2 * 180 / math.Pi))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewTable(size, gates, out)
}

func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
