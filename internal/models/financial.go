package models

import "strings"

// RawFinancialRecord is the untrusted extraction payload produced by the
// analysis service. Sub-sections are pointers: a nil section means the
// service omitted it entirely, which is distinct from a section whose
// fields are empty. Any field may be missing and must surface as
// "not available" downstream rather than break the projection.
type RawFinancialRecord struct {
	CompanyInfo       *CompanyInfo       `json:"company_info,omitempty"`
	RevenueData       *RevenueData       `json:"revenue_data,omitempty"`
	Profitability     *Profitability     `json:"profitability,omitempty"`
	CashFlow          *CashFlow          `json:"cash_flow,omitempty"`
	FinancialPosition *FinancialPosition `json:"financial_position,omitempty"`
	KeyMetrics        *KeyMetrics        `json:"key_metrics,omitempty"`
	RisksAndOutlook   *RisksAndOutlook   `json:"risks_and_outlook,omitempty"`
}

type CompanyInfo struct {
	Name   string `json:"name,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	Sector string `json:"sector,omitempty"`
	Period string `json:"period,omitempty"`
}

type RevenueData struct {
	TotalRevenue  string `json:"total_revenue,omitempty"`
	RevenueGrowth string `json:"revenue_growth,omitempty"`
}

type Profitability struct {
	NetIncome       string `json:"net_income,omitempty"`
	OperatingIncome string `json:"operating_income,omitempty"`
	ProfitMargin    string `json:"profit_margin,omitempty"`
}

type CashFlow struct {
	OperatingCashFlow string `json:"operating_cash_flow,omitempty"`
	FreeCashFlow      string `json:"free_cash_flow,omitempty"`
}

type FinancialPosition struct {
	TotalAssets        string `json:"total_assets,omitempty"`
	TotalLiabilities   string `json:"total_liabilities,omitempty"`
	CashPosition       string `json:"cash_position,omitempty"`
	ShareholdersEquity string `json:"shareholders_equity,omitempty"`
}

type KeyMetrics struct {
	EPS          string `json:"eps,omitempty"`
	PERatio      string `json:"pe_ratio,omitempty"`
	DebtToEquity string `json:"debt_to_equity,omitempty"`
	ROE          string `json:"roe,omitempty"`
}

type RisksAndOutlook struct {
	KeyRisks         string `json:"key_risks,omitempty"`
	Guidance         string `json:"guidance,omitempty"`
	MarketConditions string `json:"market_conditions,omitempty"`
}

// notAvailable is the sentinel string the analysis service emits for ratio
// fields it could not extract.
const notAvailable = "not available"

// Normalize rewrites the service's "not available" sentinel to the empty
// string for the ratio metrics that carry it, so the projection only ever
// has one absent representation to test. The sentinel comparison happens
// here, at the ingestion boundary, and nowhere else.
func (r *RawFinancialRecord) Normalize() {
	if r == nil || r.KeyMetrics == nil {
		return
	}
	clearSentinel(&r.KeyMetrics.PERatio)
	clearSentinel(&r.KeyMetrics.DebtToEquity)
	clearSentinel(&r.KeyMetrics.ROE)
}

func clearSentinel(s *string) {
	if strings.EqualFold(strings.TrimSpace(*s), notAvailable) {
		*s = ""
	}
}
