// Package solar computes the sun's position for points along a flight track.
// Lidar profiles collected in daylight carry solar background noise, so the
// session flags each observation as day or night from the solar elevation.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// Position is the apparent solar position seen from one point.
type Position struct {
	DeclinationDeg float64
	EqOfTimeMin    float64
	HourAngleDeg   float64
	ZenithDeg      float64
	ElevationDeg   float64
	CosZenith      float64
}

// refraction is the standard atmospheric refraction at the horizon, in degrees.
const refraction = 0.5667

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
func fixAngle(a float64) float64   { return a - 360.0*math.Floor(a/360.0) }

// Calculate returns the solar position at time t for the given latitude and
// longitude in degrees. Elevation includes horizon refraction.
func Calculate(t time.Time, lat, lon float64) Position {
	t = t.UTC()
	jd := julian.TimeToJD(t)
	T := (jd - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	sunLong := L0 + C
	Ω := 125.04 - 1934.136*T
	λ := sunLong - 0.00569 - 0.00478*math.Sin(degToRad(Ω))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	δRad := math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(λ)))

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	eqTimeMin := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4

	utcMin := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0
	tst := utcMin + 4*lon + eqTimeMin
	ha := tst/4 - 180

	latRad := degToRad(lat)
	cosZen := math.Sin(latRad)*math.Sin(δRad) + math.Cos(latRad)*math.Cos(δRad)*math.Cos(degToRad(ha))
	cosZen = math.Max(-1, math.Min(1, cosZen))
	zenDeg := radToDeg(math.Acos(cosZen))

	return Position{
		DeclinationDeg: radToDeg(δRad),
		EqOfTimeMin:    eqTimeMin,
		HourAngleDeg:   ha,
		ZenithDeg:      zenDeg,
		ElevationDeg:   90 - zenDeg + refraction,
		CosZenith:      cosZen,
	}
}

// Daylight reports whether the sun is above the horizon for each point of a
// track. The three slices must have the same length.
func Daylight(times []time.Time, lat, lon []float64) []bool {
	day := make([]bool, len(times))
	for i, t := range times {
		day[i] = Calculate(t, lat[i], lon[i]).ElevationDeg > 0
	}
	return day
}
