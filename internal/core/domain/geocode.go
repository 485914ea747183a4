package domain

import (
	"math"
	"time"
)

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0088

// GeoPoint is a WGS84 coordinate pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid returns true if the point is within WGS84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// BoundingBox is a lat/lon rectangle used to prefilter radius searches.
// MinLon may be below -180 or MaxLon above 180 when the box crosses the
// antimeridian; LonRanges folds such a span back into [-180, 180].
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// LonRanges returns the longitude span as one or two closed intervals in [-180, 180].
func (b BoundingBox) LonRanges() [][2]float64 {
	switch {
	case b.MaxLon-b.MinLon >= 360:
		return [][2]float64{{-180, 180}}
	case b.MinLon < -180:
		return [][2]float64{{-180, b.MaxLon}, {b.MinLon + 360, 180}}
	case b.MaxLon > 180:
		return [][2]float64{{b.MinLon, 180}, {-180, b.MaxLon - 360}}
	default:
		return [][2]float64{{b.MinLon, b.MaxLon}}
	}
}

// Contains reports whether p lies inside the box.
func (b BoundingBox) Contains(p GeoPoint) bool {
	if p.Lat < b.MinLat || p.Lat > b.MaxLat {
		return false
	}
	for _, r := range b.LonRanges() {
		if p.Lon >= r[0] && p.Lon <= r[1] {
			return true
		}
	}
	return false
}

// BoundingBoxAround returns a box that contains every point within radiusKm of center.
// Near the poles the longitude span widens to the full range.
func BoundingBoxAround(center GeoPoint, radiusKm float64) BoundingBox {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi
	box := BoundingBox{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLon: -180,
		MaxLon: 180,
	}

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	if box.MaxLat < 90 && box.MinLat > -90 && cosLat > 1e-9 {
		dLon := dLat / cosLat
		if dLon < 180 {
			box.MinLon = center.Lon - dLon
			box.MaxLon = center.Lon + dLon
		}
	}
	return box
}

// GeoResult is the answer of a geocoding lookup.
// Found is false for an explicit "not found", which is cached like any hit.
type GeoResult struct {
	Found       bool    `json:"found"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name,omitempty"`
}

// Point returns the result's coordinates.
func (r GeoResult) Point() GeoPoint {
	return GeoPoint{Lat: r.Lat, Lon: r.Lon}
}

// GeocodedLocation is the stored geocode of a place-like entity.
// EntityID is the primary key: at most one location per entity.
type GeocodedLocation struct {
	EntityID  int64     `json:"entity_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// GeoMatch is one row of a radius search.
type GeoMatch struct {
	DocumentID int64   `json:"document_id"`
	EntityID   int64   `json:"entity_id"`
	Value      string  `json:"entity_value,omitempty"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	DistanceKm float64 `json:"distance_km"`
}
