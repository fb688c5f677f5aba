package models

import "time"

// LatestYearBuilt is the newest construction year accepted at now.
// Properties may be listed before completion, so next year is allowed.
func LatestYearBuilt(now time.Time) int {
	return now.Year() + 1
}

// AgeAt returns the property's age in whole years at now, or -1 when unknown
func (f PropertyFeatures) AgeAt(now time.Time) int {
	if f.YearBuilt == nil {
		return -1
	}
	return max(now.Year()-*f.YearBuilt, 0)
}
