package models

import (
	"time"

	"address-reconciliation/pkg/address"
	"address-reconciliation/pkg/geography"
)

// AddressRecord is a stored job address. MatchKey and KeySuffix are derived
// at save time and are never edited directly.
type AddressRecord struct {
	ID                int64     `json:"id" db:"id"`
	LegalAddress      string    `json:"legal_address" db:"legal_address"`
	NormalizedAddress string    `json:"normalized_address" db:"normalized_address"`
	City              string    `json:"city" db:"city"`
	State             string    `json:"state" db:"state"`
	Zip               string    `json:"zip" db:"zip"`
	MatchKey          string    `json:"match_key" db:"match_key"`
	KeySuffix         string    `json:"-" db:"key_suffix"`
	Latitude          *float64  `json:"latitude" db:"latitude"`
	Longitude         *float64  `json:"longitude" db:"longitude"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// Stored returns the record in the shape the canonicalizer understands.
func (r AddressRecord) Stored() address.StoredRecord {
	return address.StoredRecord{
		LegalAddress:      r.LegalAddress,
		NormalizedAddress: r.NormalizedAddress,
		City:              r.City,
		State:             r.State,
		Zip:               r.Zip,
	}
}

// Position is the record's coordinate fix, nil when either coordinate is missing.
func (r AddressRecord) Position() *geography.GeoPoint {
	return geography.NewPoint(r.Latitude, r.Longitude)
}

// Derive recomputes MatchKey and KeySuffix. ok is false when the record has
// no usable street, in which case the keys are cleared.
func (r *AddressRecord) Derive() (address.Canonical, bool) {
	c, ok := address.Canonicalize(r.Stored())
	if !ok {
		r.MatchKey, r.KeySuffix = "", ""
		return c, false
	}
	r.MatchKey = address.MatchKey(c)
	r.KeySuffix = address.KeySuffix(r.MatchKey)
	return c, true
}
