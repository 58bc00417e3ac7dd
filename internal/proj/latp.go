package proj

import "math"

// Lat2Latp projects a WGS84 latitude (degrees) onto the Web-Mercator
// latitude axis, still expressed in degree-like units, so that Euclidean
// operations on (latp, lon) approximate planar Mercator operations without
// a full degrees-to-meters conversion (see GLOSSARY entry "Latp").
func Lat2Latp(lat float64) float64 {
	return 180 / math.Pi * math.Log(math.Tan(math.Pi/4+lat*(math.Pi/180)/2))
}

// Latp2Lat is the inverse of Lat2Latp.
func Latp2Lat(latp float64) float64 {
	return 360/math.Pi*math.Atan(math.Exp(latp*math.Pi/180)) - 90
}
