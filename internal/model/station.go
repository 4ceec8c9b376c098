package model

// Station feature property keys.
const (
	PropPassengers = "乗降客数2023"
	PropStation    = "駅名"
	PropOperator   = "運営会社"
	PropLine       = "路線名"
)

// Band is a station passenger-volume class.
type Band string

const (
	BandSmall  Band = "small"
	BandMedium Band = "medium"
	BandLarge  Band = "large"
)

// Band boundaries in daily passengers.
const (
	MediumBandFloor = 2000
	LargeBandFloor  = 10000
)

// Bands lists every band in ascending order.
var Bands = []Band{BandSmall, BandMedium, BandLarge}

// ParseBand converts a band name.
func ParseBand(s string) (Band, bool) {
	switch Band(s) {
	case BandSmall, BandMedium, BandLarge:
		return Band(s), true
	}
	return "", false
}
