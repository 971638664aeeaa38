// Package models holds the dashboard statistics payload.
package models

import "time"

// DirectSource labels leads without a UTM source.
const DirectSource = "Direct"

// SeriesDays is the length of the daily intake series.
const SeriesDays = 7

type Metrics struct {
	Total       int `json:"total"`
	TodaysLeads int `json:"todaysLeads"`
	Converted   int `json:"converted"`
	Rejected    int `json:"rejected"`
}

type Bucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Day struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats summarizes the leads visible to one scope.
type Stats struct {
	Metrics   Metrics   `json:"metrics"`
	ByStatus  []Bucket  `json:"byStatus"`
	BySource  []Bucket  `json:"bySource"`
	Last7Days []Day     `json:"last7Days"`
	CachedAt  time.Time `json:"cachedAt"`
}

// DayLabel renders a series label such as "Jan 02".
func DayLabel(t time.Time) string {
	return t.Format("Jan 02")
}
