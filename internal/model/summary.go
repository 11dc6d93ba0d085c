package model

type SummaryRow struct {
	UserID            string `json:"userId"`
	FullName          string `json:"fullName"`
	TotalWorkMinutes  int    `json:"totalWorkMinutes"`
	TotalBreakMinutes int    `json:"totalBreakMinutes"`
	TotalCallSeconds  int    `json:"totalCallSeconds"`
}
