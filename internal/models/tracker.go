package models

// Team - команда.
type Team struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Metric - метрика с целевым значением.
type Metric struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Target      float64 `json:"target"`
}

// Record - значение метрики для команды.
// При записи сервер ждёт metric/team (id), при чтении отдаёт ещё и имена.
type Record struct {
	ID         int64   `json:"id,omitempty"`
	Metric     int64   `json:"metric,omitempty"`
	Team       int64   `json:"team,omitempty"`
	MetricName string  `json:"metric_name,omitempty"`
	TeamName   string  `json:"team_name,omitempty"`
	Value      float64 `json:"value"`
	RecordedAt string  `json:"recorded_at"` // ISO 8601
}

// Summary - агрегаты GET /summary/. Имена полей как в API (Django __-lookup).
type Summary struct {
	MetricTeamData    []MetricTeamTotal `json:"metricTeamData"`
	RecordsByTeam     []TeamRecordCount `json:"recordsByTeam"`
	RecordTrends      []TrendPoint      `json:"recordTrends"`
	TeamContributions []TeamTotal       `json:"teamContributions"`
}

type MetricTeamTotal struct {
	MetricName string  `json:"metric__name"`
	TeamName   string  `json:"team__name"`
	TotalValue float64 `json:"total_value"`
}

type TeamRecordCount struct {
	TeamName     string `json:"team__name"`
	TotalRecords int64  `json:"total_records"`
}

type TrendPoint struct {
	Timestamp  string  `json:"timestamp"`
	TotalValue float64 `json:"total_value"`
}

type TeamTotal struct {
	TeamName   string  `json:"team__name"`
	TotalValue float64 `json:"total_value"`
}

// Dashboard - сводное представление для /dashboard.
type Dashboard struct {
	User    *User    `json:"user,omitempty"`
	Teams   []Team   `json:"teams"`
	Metrics []Metric `json:"metrics"`
	Records []Record `json:"records"`
	Summary *Summary `json:"summary,omitempty"`
}
