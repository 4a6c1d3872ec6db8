// AngelaMos | 2026
// dto.go

package admin

type SystemStatsResponse struct {
	Catalog  CatalogStats    `json:"catalog"`
	Sessions SessionStats    `json:"sessions"`
	Files    FileStats       `json:"files"`
	Database *DatabaseStatus `json:"database,omitempty"`
	Redis    RedisStatus     `json:"redis"`
	Runtime  RuntimeStats    `json:"runtime"`
}

type CatalogStats struct {
	BackendConnected bool `json:"backend_connected"`
	BackendBooks     *int `json:"backend_books,omitempty"`
	LoadedBooks      int  `json:"loaded_books"`
	Subjects         int  `json:"subjects"`
}

type SessionStats struct {
	Persisted int `json:"persisted"`
	InMemory  int `json:"in_memory"`
}

type FileStats struct {
	Count      int    `json:"count"`
	TotalBytes int64  `json:"total_bytes"`
	TotalSize  string `json:"total_size"`
	LiveURLs   int    `json:"live_urls"`
}

type ProbeResult struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

type DiagnosticsResponse struct {
	BackendConnected bool        `json:"backend_connected"`
	Session          bool        `json:"session"`
	UserID           string      `json:"user_id"`
	Email            string      `json:"email"`
	Role             string      `json:"role"`
	ProfileRow       ProbeResult `json:"profile_row"`
	ProfileRole      string      `json:"profile_role,omitempty"`
	BooksRead        ProbeResult `json:"books_read"`
	BooksInsert      ProbeResult `json:"books_insert"`
	ProbeCleanedUp   bool        `json:"probe_cleaned_up"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
