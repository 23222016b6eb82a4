package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/davecgh/go-spew/spew"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/senpro-it/grafana-reporter/mailer"
	"github.com/senpro-it/grafana-reporter/report"
)

var logger = log.NewWithOptions(os.Stdout, log.Options{
	Prefix:          "",
	ReportCaller:    false,
	ReportTimestamp: true,
})
var v = viper.NewWithOptions(viper.WithLogger(slog.New(logger)))

func main() {
	// configure oops
	oops.SourceFragmentsHidden = false

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded.", "error", err)
	}

	config, err := loadConfig(v, pflag.CommandLine, os.Args[1:])
	if err != nil {
		err := oops.Wrap(err)
		logger.Fatal(err.Error(), "error", err)
	}
	if config.Verbose {
		logger.SetLevel(log.DebugLevel)
	}
	logger.Info("Configuration loaded!")

	grafana, err := MakeGrafanaClient(config.Grafana)
	if err != nil {
		logger.Fatal(err.Error(), "error", err)
	}
	if ok, err := grafana.IsOK(); !ok {
		logger.Warn("Grafana health check failed", "url", config.Grafana.Url, "error", err)
	}

	if config.List {
		if err := listDashboards(grafana); err != nil {
			logger.Fatal(err.Error(), "error", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, config, grafana); err != nil {
		stop()
		logger.Fatal(err.Error(), "error", err)
	}
}

func run(ctx context.Context, config Config, ds report.DataSource) error {
	var templates fs.FS
	if config.Output.TemplateDir != "" {
		templates = os.DirFS(config.Output.TemplateDir)
	}

	res, err := report.Generate(ctx, config.UID, ds, report.Output{
		Dest:         config.Output.Dest,
		Base64:       config.Output.Base64,
		Compress:     config.Output.Compress,
		Templates:    templates,
		TemplateName: config.Output.Template,
	}, report.Options{
		Logger:          logger,
		Workers:         config.Workers,
		ContinueOnError: config.ContinueOnError,
	})
	if err != nil {
		return err
	}
	logger.Debug("Dashboard variables\n" + spew.Sdump(res.Dashboard.DashVars))
	logger.Info("Report ready", "path", res.Path)

	if !config.Mail.Enabled() {
		return nil
	}
	return mailReport(config.Mail, res)
}

func mailReport(cfg MailConfig, res *report.Result) error {
	oopsBuilder := oops.In("mailReport").With("path", res.Path)
	if !res.SingleFile {
		return oopsBuilder.Wrap(ErrMailNeedsSingleFile)
	}
	f, err := os.Open(res.Path)
	if err != nil {
		return oopsBuilder.Wrap(err)
	}
	defer f.Close()

	subject := cfg.Subject
	if subject == "" {
		subject = res.Dashboard.Title
	}
	m := &mailer.Mailer{
		Host:     cfg.Host,
		Port:     cfg.Port,
		SSL:      cfg.SSL,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		Debug:    logger.GetLevel() == log.DebugLevel,
	}
	if err := m.Send(cfg.To, subject, res.Path, f); err != nil {
		return oopsBuilder.Wrap(err)
	}
	logger.Info("Report mailed", "to", cfg.To)
	return nil
}

func listDashboards(grafana *GrafanaClient) error {
	dashboards, err := grafana.ListDashboards()
	if err != nil {
		return err
	}
	for _, dash := range dashboards {
		logger.
			With("UID", dash.UID).
			With("Folder", dash.FolderTitle).
			Info(dash.Title)
	}
	fmt.Fprintf(os.Stderr, "%d dashboards\n", len(dashboards))
	return nil
}
