package domain

import "time"

// AreaType determines how a restricted area is matched against a merchant.
type AreaType string

const (
	// AreaRadius matches merchants within RadiusMiles of the center.
	AreaRadius AreaType = "RADIUS"

	// AreaZipCode matches merchants in the ZIP code.
	AreaZipCode AreaType = "ZIP_CODE"

	// AreaCity matches merchants in the city.
	AreaCity AreaType = "CITY"
)

// Valid reports whether t is a known area type.
func (t AreaType) Valid() bool {
	switch t {
	case AreaRadius, AreaZipCode, AreaCity:
		return true
	}
	return false
}

// RestrictedArea is a place where a program's benefits may not be spent.
// An empty MCC restricts every merchant code.
type RestrictedArea struct {
	ID          string    `json:"id"`
	Program     string    `json:"program"`
	MCC         string    `json:"mcc,omitempty"`
	Type        AreaType  `json:"type"`
	CenterLat   float64   `json:"centerLat,omitempty"`
	CenterLng   float64   `json:"centerLng,omitempty"`
	RadiusMiles float64   `json:"radiusMiles,omitempty"`
	ZipCode     string    `json:"zipCode,omitempty"`
	City        string    `json:"city,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}
