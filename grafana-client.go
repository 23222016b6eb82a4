package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-openapi/strfmt"
	grafana "github.com/grafana/grafana-openapi-client-go/client"
	client_dashboards "github.com/grafana/grafana-openapi-client-go/client/dashboards"
	"github.com/grafana/grafana-openapi-client-go/client/search"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/oops"

	mymodels "github.com/senpro-it/grafana-reporter/models"
	"github.com/senpro-it/grafana-reporter/report"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GrafanaClient talks to one Grafana instance. Typed endpoints go through the
// generated OpenAPI client, the rest through httpClient.
type GrafanaClient struct {
	client     *grafana.GrafanaHTTPAPI
	httpClient *http.Client
	baseUrl    string
	token      string
	username   string
	password   string
}

var _ report.DataSource = (*GrafanaClient)(nil)

func MakeGrafanaClient(cfg GrafanaConfig) (*GrafanaClient, error) {
	baseUrl := strings.TrimRight(cfg.Url, "/")
	gurl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, oops.
			In("MakeGrafanaClient").
			User(cfg.Username).
			With("baseUrl", baseUrl).
			Wrap(err)
	}
	if gurl.Scheme == "" || gurl.Host == "" {
		return nil, oops.
			In("MakeGrafanaClient").
			With("baseUrl", baseUrl).
			Errorf("grafana url must be absolute, e.g. https://grafana.example.com")
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.Insecure}
	transportCfg := &grafana.TransportConfig{
		Host:      gurl.Host,
		BasePath:  strings.TrimRight(gurl.Path, "/") + "/api",
		Schemes:   []string{gurl.Scheme},
		TLSConfig: tlsConfig,
	}
	if cfg.Token != "" {
		transportCfg.APIKey = cfg.Token
	} else if cfg.Username != "" {
		transportCfg.BasicAuth = url.UserPassword(cfg.Username, cfg.Password)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	return &GrafanaClient{
		client: grafana.NewHTTPClientWithConfig(strfmt.Default, transportCfg),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		baseUrl:  baseUrl,
		token:    cfg.Token,
		username: cfg.Username,
		password: cfg.Password,
	}, nil
}

func (c *GrafanaClient) IsOK() (bool, error) {
	oopsBuilder := oops.In("IsOK")
	ok, err := c.client.Health.GetHealth()
	if err != nil {
		return false, oopsBuilder.Wrap(err)
	}
	if !ok.IsSuccess() {
		return false, oopsBuilder.Errorf("health request was not successful")
	}
	return true, nil
}

// GetDashboard returns the dashboard document as JSON, wrapped the way
// /api/dashboards/uid/{uid} wraps it.
func (c *GrafanaClient) GetDashboard(ctx context.Context, uid string) ([]byte, error) {
	oopsBuilder := oops.In("GetDashboard").With("uid", uid)
	logger := logger.WithPrefix("Dashboard").With("uid", uid)

	dashReq, err := c.client.Dashboards.GetDashboardByUID(uid)
	if _, ok := err.(*client_dashboards.GetDashboardByUIDNotFound); ok {
		return nil, oopsBuilder.Hint("is the dashboard uid correct?").Errorf("dashboard not found")
	}
	if _, ok := err.(*client_dashboards.GetDashboardByUIDForbidden); ok {
		return nil, oopsBuilder.Hint("the token lacks access to this dashboard").Errorf("dashboard access forbidden")
	}
	if err != nil {
		if dashReq != nil {
			oopsBuilder = oopsBuilder.With("dashReq", dashReq)
		}
		return nil, oopsBuilder.Wrap(err)
	}
	if !dashReq.IsSuccess() {
		return nil, oopsBuilder.
			With("dashReq", dashReq).
			Errorf("dashboard request was not successful")
	}

	payload := dashReq.GetPayload()
	logger.Debug("Fetched.")
	body, err := json.Marshal(map[string]any{"dashboard": payload.Dashboard})
	if err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	return body, nil
}

// ListDashboards returns every dashboard the credentials can see.
func (c *GrafanaClient) ListDashboards() ([]mymodels.Dashboard, error) {
	oopsMaker := oops.In("ListDashboards")
	hitType := "dash-db"
	params := search.NewSearchParams().WithType(&hitType)

	dashboards, err := c.client.Search.Search(params, nil)
	if err != nil {
		return nil, oopsMaker.
			With("dashboards", dashboards).
			Wrap(err)
	}

	var filtered []mymodels.Dashboard
	for _, vv := range dashboards.GetPayload() {
		if string(vv.Type) == "dash-folder" {
			continue
		}
		filtered = append(filtered, mymodels.Dashboard{
			ID:          vv.ID,
			UID:         vv.UID,
			Title:       vv.Title,
			FolderTitle: vv.FolderTitle,
			Slug:        vv.Slug,
		})
	}
	return filtered, nil
}
