package model

// StatsResponse is the API response for global statistics.
type StatsResponse struct {
	TotalQuestions     int            `json:"totalQuestions"`
	TotalContests      int            `json:"totalContests"`
	TotalVotes         int            `json:"totalVotes"`
	TotalClusters      int            `json:"totalClusters"`
	AuditEntries       int            `json:"auditEntries"`
	QuestionsByStatus  map[string]int `json:"questionsByStatus"`
	FlaggedQuestions   int            `json:"flaggedQuestions"`
	PendingClusterings int            `json:"pendingClusterings"`
}
