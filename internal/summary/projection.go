// Package summary derives the display-ready financial summary from a raw
// extraction record.
package summary

import (
	"fmt"

	"github.com/financeai/backend/internal/models"
)

const (
	// FieldUnavailable is shown for any headline field the record lacks.
	FieldUnavailable = "N/A"

	// DefaultCompanyName is used when a record carries no company name.
	DefaultCompanyName = "Company"

	// NoDocumentCompanyName marks the pre-projection state, before any
	// document has ever been analyzed. Distinct from DefaultCompanyName.
	NoDocumentCompanyName = "No document uploaded"
)

// maxAlerts caps the alert list. Only three source fields exist today, so
// the cap never truncates in practice, but it is enforced regardless.
const maxAlerts = 3

// Empty returns the summary shown before any projection has run.
func Empty() *models.FinancialSummary {
	return &models.FinancialSummary{
		TotalRevenue:      FieldUnavailable,
		NetIncome:         FieldUnavailable,
		OperatingCashFlow: FieldUnavailable,
		TotalAssets:       FieldUnavailable,
		RevenueGrowth:     FieldUnavailable,
		CompanyName:       NoDocumentCompanyName,
		KeyMetrics:        []models.KeyMetric{},
		Alerts: []models.Alert{
			{Severity: models.AlertInfo, Message: "Upload a financial document to see detailed analysis"},
		},
	}
}

// Project derives a summary from one raw record. Every field is
// independently optional; absent fields surface as FieldUnavailable and
// contribute nothing to the metric and alert lists. The result never mixes
// data from two records.
//
// The record is expected to be normalized (see RawFinancialRecord.Normalize),
// so presence checks here are plain emptiness tests.
func Project(rec *models.RawFinancialRecord) *models.FinancialSummary {
	s := &models.FinancialSummary{
		TotalRevenue:      FieldUnavailable,
		NetIncome:         FieldUnavailable,
		OperatingCashFlow: FieldUnavailable,
		TotalAssets:       FieldUnavailable,
		RevenueGrowth:     FieldUnavailable,
		CompanyName:       DefaultCompanyName,
		KeyMetrics:        []models.KeyMetric{},
		Alerts:            []models.Alert{},
	}
	if rec == nil {
		return s
	}

	if ci := rec.CompanyInfo; ci != nil && ci.Name != "" {
		s.CompanyName = ci.Name
	}
	if rd := rec.RevenueData; rd != nil {
		if rd.TotalRevenue != "" {
			s.TotalRevenue = rd.TotalRevenue
		}
		if rd.RevenueGrowth != "" {
			s.RevenueGrowth = rd.RevenueGrowth
		}
	}
	if p := rec.Profitability; p != nil && p.NetIncome != "" {
		s.NetIncome = p.NetIncome
	}
	if cf := rec.CashFlow; cf != nil && cf.OperatingCashFlow != "" {
		s.OperatingCashFlow = cf.OperatingCashFlow
	}
	if fp := rec.FinancialPosition; fp != nil && fp.TotalAssets != "" {
		s.TotalAssets = fp.TotalAssets
	}

	// Metric order is fixed: ratios first, then balance sheet positions.
	if km := rec.KeyMetrics; km != nil {
		if km.EPS != "" {
			s.KeyMetrics = append(s.KeyMetrics, models.KeyMetric{Name: "EPS", Value: km.EPS, Description: "Earnings Per Share"})
		}
		if km.PERatio != "" {
			s.KeyMetrics = append(s.KeyMetrics, models.KeyMetric{Name: "P/E Ratio", Value: km.PERatio, Description: "Price to Earnings Ratio"})
		}
		if km.DebtToEquity != "" {
			s.KeyMetrics = append(s.KeyMetrics, models.KeyMetric{Name: "Debt to Equity", Value: km.DebtToEquity, Description: "Debt to Equity Ratio"})
		}
		if km.ROE != "" {
			s.KeyMetrics = append(s.KeyMetrics, models.KeyMetric{Name: "ROE", Value: km.ROE, Description: "Return on Equity"})
		}
	}
	if fp := rec.FinancialPosition; fp != nil {
		if fp.CashPosition != "" {
			s.KeyMetrics = append(s.KeyMetrics, models.KeyMetric{Name: "Cash Position", Value: fp.CashPosition, Description: "Available Cash"})
		}
		if fp.ShareholdersEquity != "" {
			s.KeyMetrics = append(s.KeyMetrics, models.KeyMetric{Name: "Shareholders' Equity", Value: fp.ShareholdersEquity, Description: "Total Equity"})
		}
	}

	if ro := rec.RisksAndOutlook; ro != nil {
		if ro.KeyRisks != "" {
			s.Alerts = append(s.Alerts, models.Alert{Severity: models.AlertWarning, Message: fmt.Sprintf("Key Risks: %s", ro.KeyRisks)})
		}
		if ro.Guidance != "" {
			s.Alerts = append(s.Alerts, models.Alert{Severity: models.AlertInfo, Message: fmt.Sprintf("Guidance: %s", ro.Guidance)})
		}
		if ro.MarketConditions != "" {
			s.Alerts = append(s.Alerts, models.Alert{Severity: models.AlertInfo, Message: fmt.Sprintf("Market: %s", ro.MarketConditions)})
		}
	}
	if len(s.Alerts) > maxAlerts {
		s.Alerts = s.Alerts[:maxAlerts]
	}

	return s
}
