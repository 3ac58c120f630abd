package dto

// LeaderboardEntry is one student's aggregated standing.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Total     int    `json:"total"`
	TotalTime int    `json:"total_time"`
	Days      int    `json:"days"`
}
