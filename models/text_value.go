package models

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TextValue accepts either a string or a list of strings. Lists are joined the
// way Grafana displays multi-value selections.
type TextValue string

func (t *TextValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = TextValue(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*t = TextValue(strings.Join(many, " + "))
	return nil
}

func (t TextValue) String() string {
	return string(t)
}

// ParseDashboardDocument decodes the body of /api/dashboards/uid/{uid}.
func ParseDashboardDocument(data []byte) (*DashboardDocument, error) {
	var doc DashboardDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseAlerts decodes the body of /api/alerts.
func ParseAlerts(data []byte) ([]Alert, error) {
	var alerts []Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}
