package ipc

// Request is a JSON message sent from client to server.
type Request struct {
	Command string            `json:"command"` // "status", "stop", "ping"
	Args    map[string]string `json:"args,omitempty"`
}

// Response is a JSON message sent from server to client.
type Response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// StatusData is returned by the "status" command.
type StatusData struct {
	Uptime            string   `json:"uptime"`
	DBSizeBytes       int64    `json:"db_size_bytes"`
	EventsIngested    int64    `json:"events_ingested"`
	AttributionsCount int64    `json:"attributions_count"`
	AssessmentsCount  int64    `json:"assessments_count"`
	GitCommitsCount   int64    `json:"git_commits_count"`
	WatchedLogs       []string `json:"watched_logs"`

	// Latest attribution across all tailed sessions, if any analysis
	// has completed yet.
	LastSource        string  `json:"last_source,omitempty"`
	LastAIProbability float64 `json:"last_ai_probability,omitempty"`
}
