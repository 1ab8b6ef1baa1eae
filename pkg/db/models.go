package db

import "time"

// MonthlyKeyword is one ranked keyword stored for a user and month.
type MonthlyKeyword struct {
	UserID      string    `json:"user_id" yaml:"user_id"`
	TargetMonth time.Time `json:"target_month" yaml:"target_month"`
	Word        string    `json:"word" yaml:"word"`
	Count       int       `json:"count" yaml:"count"`
	Rank        int       `json:"rank" yaml:"rank"`
}

// Month formats TargetMonth as YYYY-MM.
func (k MonthlyKeyword) Month() string { return k.TargetMonth.Format("2006-01") }
