package zapclient

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Risk levels as reported in the alert risk field.
const (
	RiskHigh          = "High"
	RiskMedium        = "Medium"
	RiskLow           = "Low"
	RiskInformational = "Informational"
)

// Alert is one finding from core/view/alerts.
type Alert struct {
	ID          string `json:"id"`
	PluginID    string `json:"pluginId"`
	AlertRef    string `json:"alertRef"`
	Alert       string `json:"alert"`
	Name        string `json:"name"`
	Risk        string `json:"risk"`
	Confidence  string `json:"confidence"`
	Description string `json:"description"`
	Solution    string `json:"solution"`
	Reference   string `json:"reference"`
	CWEID       string `json:"cweid"`
	WASCID      string `json:"wascid"`
	URL         string `json:"url"`
	Method      string `json:"method"`
	Param       string `json:"param"`
	Attack      string `json:"attack"`
	Evidence    string `json:"evidence"`
}

// ParseAlerts decodes a raw alerts report as returned by Client.Alerts.
func ParseAlerts(report string) ([]Alert, error) {
	var out struct {
		Alerts []Alert `json:"alerts"`
	}
	if err := json.Unmarshal([]byte(report), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out.Alerts, nil
}

// RiskCount is the number of alerts at one risk level.
type RiskCount struct {
	Risk  string `json:"risk"`
	Count int    `json:"count"`
}

var riskOrder = map[string]int{
	RiskHigh:          0,
	RiskMedium:        1,
	RiskLow:           2,
	RiskInformational: 3,
}

// Summarize counts alerts per risk, most severe first. Unknown risk values
// sort last, alphabetically.
func Summarize(alerts []Alert) []RiskCount {
	counts := make(map[string]int)
	for _, a := range alerts {
		risk := a.Risk
		if risk == "" {
			risk = RiskInformational
		}
		counts[risk]++
	}

	out := make([]RiskCount, 0, len(counts))
	for risk, n := range counts {
		out = append(out, RiskCount{Risk: risk, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := riskOrder[out[i].Risk]
		oj, jok := riskOrder[out[j].Risk]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return out[i].Risk < out[j].Risk
		}
	})
	return out
}
