package types

// Category classifies job postings. UsageCount tracks how many jobs
// currently reference the category and is maintained by the job store
// inside the same transaction as the job write.
type Category struct {
	ID         int    `json:"id" db:"id"`
	Type       string `json:"type" db:"type"`
	UsageCount int    `json:"usageCount" db:"usage_count"`
	Visible    bool   `json:"isVisible" db:"is_visible"`
}
