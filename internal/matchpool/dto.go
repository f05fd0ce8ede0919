package matchpool

import "time"

// NextMatchesResponse is the payload for one discovery batch
type NextMatchesResponse struct {
	PoolID    string       `json:"pool_id"`
	PoolDate  string       `json:"pool_date"`
	Matches   []*PoolEntry `json:"matches"`
	Completed bool         `json:"completed"`
	Remaining int          `json:"remaining"`
}

// PoolStatusResponse summarizes the current pool without consuming it
type PoolStatusResponse struct {
	Available        bool   `json:"available"`
	PoolID           string `json:"pool_id,omitempty"`
	PoolDate         string `json:"pool_date,omitempty"`
	Status           string `json:"status,omitempty"`
	TotalEntries     int    `json:"total_entries"`
	Remaining        int    `json:"remaining"`
	ActionsSubmitted int    `json:"actions_submitted"`
	MatchesFound     int    `json:"matches_found"`
	LowSupply        bool   `json:"low_supply"`
}

// CountdownResponse tells the client when the next pool unlocks
type CountdownResponse struct {
	Available        bool      `json:"available"`
	NextReleaseAt    time.Time `json:"next_release_at"`
	SecondsRemaining int64     `json:"seconds_remaining"`
}

// PoolHistoryResponse pages through past pools
type PoolHistoryResponse struct {
	Pools   []*MatchPool `json:"pools"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
	HasMore bool         `json:"has_more"`
}
