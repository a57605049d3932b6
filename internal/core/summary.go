package core

// CategorySpend is the spending of one category in the report currency.
type CategorySpend struct {
	Category string  `json:"category"`
	Spent    float64 `json:"spent"`
}

// BudgetStatus joins a category's spending with its budget, if any.
type BudgetStatus struct {
	Category   string  `json:"category"`
	Spent      float64 `json:"spent"`
	Limit      float64 `json:"limit,omitempty"`
	HasBudget  bool    `json:"has_budget"`
	Percentage float64 `json:"percentage"`
	OverBudget bool    `json:"over_budget"`
}

// BudgetOverview is the budget page for a user, period and currency.
type BudgetOverview struct {
	Period     string         `json:"period"`
	Currency   string         `json:"currency"`
	TotalSpent float64        `json:"total_spent"`
	Categories []BudgetStatus `json:"categories"`
}

// PeriodSummary holds the dashboard totals for a reporting period.
type PeriodSummary struct {
	Period        string  `json:"period"`
	Currency      string  `json:"currency"`
	Subscriptions float64 `json:"subscriptions"`
	Income        float64 `json:"income"`
	Expenses      float64 `json:"expenses"`
	Net           float64 `json:"net"`
}
