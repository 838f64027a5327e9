package domain

import "time"

// Contest describes one entry in the contest arena.
type Contest struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Category       string    `json:"category"`
	EntryFeeUSD    int       `json:"entry_fee_usd"`
	FuelPoints     int64     `json:"fuel_points"`
	MinPlayers     int       `json:"min_players"`
	DurationDays   int       `json:"duration_days"`
	RequiredDevice string    `json:"required_device"`
	StartDate      time.Time `json:"start_date"`
}

// IsFree reports whether registration carries no entry fee.
func (c Contest) IsFree() bool { return c.EntryFeeUSD == 0 }

// Registration statuses held in the store.
const (
	StatusRegistered = "registered"
	StatusActive     = "active"
)

// DefaultContests returns the launch contest catalog.
func DefaultContests() []Contest {
	return []Contest{
		{
			ID:             "tc1",
			Name:           "Sleep Masters",
			Category:       "Sleep",
			EntryFeeUSD:    75,
			FuelPoints:     FPContestWin,
			MinPlayers:     8,
			DurationDays:   30,
			RequiredDevice: "Oura Ring",
			StartDate:      time.Date(2025, 4, 15, 4, 0, 0, 0, time.UTC),
		},
		{
			ID:             "tc2",
			Name:           "100 Mile Club",
			Category:       "Exercise",
			EntryFeeUSD:    75,
			FuelPoints:     FPContestWin,
			MinPlayers:     8,
			DurationDays:   30,
			RequiredDevice: "Strava",
			StartDate:      time.Date(2025, 4, 15, 4, 0, 0, 0, time.UTC),
		},
	}
}

// ContestIndex keys a catalog by contest ID.
func ContestIndex(contests []Contest) map[string]Contest {
	idx := make(map[string]Contest, len(contests))
	for _, c := range contests {
		idx[c.ID] = c
	}
	return idx
}
