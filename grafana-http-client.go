package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/samber/oops"

	mymodels "github.com/senpro-it/grafana-reporter/models"
)

// UnexpectedStatusError is returned for any non-200 answer that has no
// dedicated meaning.
type UnexpectedStatusError struct {
	StatusCode int
	URL        string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

func (c *GrafanaClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

// doRequest performs one round trip and returns the status and body.
func (c *GrafanaClient) doRequest(ctx context.Context, method string, endpoint string, vals url.Values) (int, []byte, error) {
	fullUrl := c.baseUrl + endpoint
	if len(vals) > 0 {
		fullUrl += "?" + vals.Encode()
	}
	logger := logger.WithPrefix("HTTP")
	logger.Debug("Creating request", "method", method, "url", fullUrl)

	req, err := http.NewRequestWithContext(ctx, method, fullUrl, nil)
	if err != nil {
		return 0, nil, oops.In("doRequest").With("url", fullUrl).Wrap(err)
	}
	c.authorize(req)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, oops.In("doRequest").With("url", fullUrl).Wrap(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, oops.In("doRequest").With("url", fullUrl).Wrap(err)
	}
	logger.Debug("Response", "statusCode", res.StatusCode, "bytes", len(body))
	return res.StatusCode, body, nil
}

// Implements GET /api/alerts/
func (c *GrafanaClient) GetAlertsByDashboardAndPanel(ctx context.Context, dashboardID, panelID int64) ([]mymodels.Alert, error) {
	oopsBuilder := oops.
		In("GetAlertsByDashboardAndPanel").
		With("dashboardID", dashboardID).
		With("panelID", panelID)

	vals := url.Values{}
	vals.Set("dashboardId", strconv.FormatInt(dashboardID, 10))
	vals.Set("panelId", strconv.FormatInt(panelID, 10))
	status, body, err := c.doRequest(ctx, http.MethodGet, "/api/alerts/", vals)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	// Servers running unified alerting no longer serve the legacy list.
	if status == http.StatusNotFound {
		logger.Debug("Legacy alert API unavailable", "dashboardID", dashboardID, "panelID", panelID)
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, oopsBuilder.Wrap(&UnexpectedStatusError{StatusCode: status, URL: "/api/alerts/"})
	}

	alerts, err := mymodels.ParseAlerts(body)
	if err != nil {
		return nil, oopsBuilder.Hint("alert list is not valid JSON").Wrap(err)
	}
	return alerts, nil
}

// Implements GET /render/d-solo/{uid}
func (c *GrafanaClient) GetImagePanel(ctx context.Context, dashboardUID string, panelID int64, fromDate, toDate string, width, height int) ([]byte, error) {
	oopsBuilder := oops.
		In("GetImagePanel").
		With("dashboardUID", dashboardUID).
		With("panelID", panelID)

	vals := url.Values{}
	vals.Set("panelId", strconv.FormatInt(panelID, 10))
	vals.Set("from", fromDate)
	vals.Set("to", toDate)
	vals.Set("width", strconv.Itoa(width))
	vals.Set("height", strconv.Itoa(height))
	endpoint := "/render/d-solo/" + url.PathEscape(dashboardUID)

	status, body, err := c.doRequest(ctx, http.MethodGet, endpoint, vals)
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	if status != http.StatusOK {
		return nil, oopsBuilder.
			Hint("is the image renderer plugin installed?").
			Wrap(&UnexpectedStatusError{StatusCode: status, URL: endpoint})
	}
	return body, nil
}
