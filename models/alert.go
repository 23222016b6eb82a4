package models

// Alert is a legacy alert rule as returned by /api/alerts.
type Alert struct {
	ID           int64  `json:"id"`
	DashboardID  int64  `json:"dashboardId"`
	DashboardUID string `json:"dashboardUid"`
	PanelID      int64  `json:"panelId"`
	Name         string `json:"name"`
	State        string `json:"state"`
	NewStateDate string `json:"newStateDate"`
	URL          string `json:"url"`
}

const AlertStateAlerting = "alerting"
