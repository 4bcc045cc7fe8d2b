package model

import (
	"slices"
	"time"
)

var Specializations = []string{
	"anxiety", "depression", "relationships", "trauma",
	"addiction", "career", "family", "lgbtq+",
}

var Weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

type Qualification struct {
	Degree      string `json:"degree" validate:"required,max=200"`
	Institution string `json:"institution" validate:"required,max=200"`
	Year        int    `json:"year" validate:"omitempty,min=1900,max=2100"`
}

// TimeSlot is a wall-clock range within one day, "HH:MM" without a zone.
type TimeSlot struct {
	StartTime   string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime     string `json:"endTime" validate:"required,datetime=15:04"`
	IsAvailable bool   `json:"isAvailable"`
}

type DayAvailability struct {
	Day   string     `json:"day" validate:"required,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	Slots []TimeSlot `json:"slots" validate:"dive"`
}

type Rating struct {
	Average      float64 `json:"average"`
	TotalReviews int     `json:"totalReviews"`
}

type Counsellor struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	Specialization    []string          `json:"specialization"`
	Qualifications    []Qualification   `json:"qualifications"`
	LicenseNumber     string            `json:"licenseNumber"`
	YearsOfExperience int               `json:"yearsOfExperience"`
	HourlyRate        float64           `json:"hourlyRate"`
	Bio               string            `json:"bio,omitempty"`
	Languages         []string          `json:"languages"`
	Availability      []DayAvailability `json:"availability"`
	Rating            Rating            `json:"rating"`
	IsVerified        bool              `json:"isVerified"`
	IsActive          bool              `json:"isActive"`
	SessionModalities []string          `json:"sessionModalities"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// DayTemplate returns the weekly template entry for a lowercase weekday name.
func (c Counsellor) DayTemplate(day string) (DayAvailability, bool) {
	for _, d := range c.Availability {
		if d.Day == day {
			return d, true
		}
	}
	return DayAvailability{}, false
}

// OffersModality reports whether sessionType is allowed. An empty list allows everything.
func (c Counsellor) OffersModality(sessionType string) bool {
	return len(c.SessionModalities) == 0 || slices.Contains(c.SessionModalities, sessionType)
}
