package model

// Examinee is a registered exam taker. Batch is the cohort label shown on
// monitoring dashboards.
type Examinee struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Batch string `json:"batch"`
}
