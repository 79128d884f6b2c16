// CivicPulse - Civic Issue Reporting and Duplicate Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicpulse

package detection

import "math"

// EarthRadiusMeters is the mean earth radius used for haversine distances.
const EarthRadiusMeters = 6371000.0

const degToRad = math.Pi / 180

// HaversineMeters returns the great-circle distance between a and b.
func HaversineMeters(a, b Coordinates) float64 {
	lat1 := a.Latitude * degToRad
	lat2 := b.Latitude * degToRad
	dLat := (b.Latitude - a.Latitude) * degToRad
	dLon := (b.Longitude - a.Longitude) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}
