package models

// AlertSeverity classifies a summary alert.
type AlertSeverity string

const (
	AlertWarning AlertSeverity = "warning"
	AlertInfo    AlertSeverity = "info"
	AlertSuccess AlertSeverity = "success"
)

// KeyMetric is one named ratio or figure shown in the summary view.
type KeyMetric struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// Alert is one advisory line derived from the risks and outlook section.
type Alert struct {
	Severity AlertSeverity `json:"type"`
	Message  string        `json:"message"`
}

// FinancialSummary is the flattened, display-ready projection of one
// RawFinancialRecord. It is always derived fresh from a single record and
// replaced wholesale, never patched field by field.
type FinancialSummary struct {
	TotalRevenue      string      `json:"totalRevenue"`
	NetIncome         string      `json:"netIncome"`
	OperatingCashFlow string      `json:"operatingCashFlow"`
	TotalAssets       string      `json:"totalAssets"`
	RevenueGrowth     string      `json:"revenueGrowth"`
	CompanyName       string      `json:"companyName"`
	KeyMetrics        []KeyMetric `json:"keyMetrics"`
	Alerts            []Alert     `json:"alerts"`
}
