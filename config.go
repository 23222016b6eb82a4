package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/senpro-it/grafana-reporter/report"
)

var (
	ErrNoGrafanaURL        = errors.New("no grafana url: pass it as first argument or set grafana.url")
	ErrNoDashboardUID      = errors.New("no dashboard uid: pass it as second argument or set uid")
	ErrInvalidWorkers      = errors.New("invalid workers: must be positive")
	ErrMailNeedsSingleFile = errors.New("mail delivery needs a single file report: use --base64, or --compress with --dest")
)

type GrafanaConfig struct {
	Url      string
	Token    string
	Username string
	Password string
	Insecure bool
	Timeout  time.Duration
}

type OutputConfig struct {
	Dest        string
	Base64      bool
	Compress    bool
	Template    string
	TemplateDir string
}

type MailConfig struct {
	Host     string
	Port     int
	SSL      bool
	Username string
	Password string
	From     string
	To       []string
	Subject  string
}

func (m MailConfig) Enabled() bool {
	return len(m.To) > 0
}

type Config struct {
	Grafana         GrafanaConfig
	UID             string
	Output          OutputConfig
	Workers         int
	ContinueOnError bool
	List            bool
	Verbose         bool
	Mail            MailConfig
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("grafana.url", "", "Grafana URL (or first argument)")
	flags.String("uid", "", "Dashboard UID (or second argument)")
	flags.String("api_key", "", "Grafana API key / service account token")
	flags.String("grafana.user", "", "Grafana Username (BasicAuth, used without api_key)")
	flags.String("grafana.pass", "", "Grafana Password (BasicAuth)")
	flags.Bool("insecure", false, "If set, does not verify certificates")
	flags.Duration("timeout", 0, "Timeout per HTTP request (0 waits forever)")
	flags.String("dest", "", "Destination folder")
	flags.Bool("compress", false, "If set, compresses the report as a tar.xz archive")
	flags.Bool("base64", false, "Make the report as a single HTML file with base64 images")
	flags.String("template", report.DefaultTemplate, `Template name, e.g. "dark"`)
	flags.String("template_dir", "", "Directory holding template sets (default: built-in)")
	flags.Int("workers", report.DefaultWorkers, "Panel images fetched in parallel")
	flags.Bool("continue_on_error", false, "Keep going when a panel image fails")
	flags.Bool("list", false, "List dashboards and exit")
	flags.String("mail.host", "", "SMTP host")
	flags.Int("mail.port", 465, "SMTP port")
	flags.Bool("mail.ssl", true, "Use implicit TLS for SMTP")
	flags.String("mail.user", "", "SMTP username")
	flags.String("mail.pass", "", "SMTP password")
	flags.String("mail.from", "", "Sender address")
	flags.StringSlice("mail.to", nil, "Recipients of the report")
	flags.String("mail.subject", "", "Mail subject (default: dashboard title)")
	flags.Bool("verbose", false, "Enable debug logs")
}

// loadConfig parses args into flags and merges them with the environment and
// reporter.yaml. A missing config file is not an error.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet, args []string) (Config, error) {
	registerFlags(flags)
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, err
	}
	if err := v.BindPFlag("grafana.token", flags.Lookup("api_key")); err != nil {
		return Config{}, err
	}

	v.SetConfigName("reporter")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("grg")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names kept from earlier releases.
	_ = v.BindEnv("dest", "GRG_DEST", "REPORT_DESTINATION")
	_ = v.BindEnv("compress", "GRG_COMPRESS", "REPORT_COMPRESS")
	_ = v.BindEnv("base64", "GRG_BASE64", "REPORT_BASE64")
	_ = v.BindEnv("insecure", "GRG_INSECURE", "HTTPS_INSECURE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Debug("No config file found; using flags and ENV.")
		} else {
			return Config{}, err
		}
	}

	positional := flags.Args()
	if len(positional) > 0 {
		v.Set("grafana.url", positional[0])
	}
	if len(positional) > 1 {
		v.Set("uid", positional[1])
	}

	config := Config{
		Grafana: GrafanaConfig{
			Url:      strings.TrimRight(v.GetString("grafana.url"), "/"),
			Token:    v.GetString("grafana.token"),
			Username: v.GetString("grafana.user"),
			Password: v.GetString("grafana.pass"),
			Insecure: v.GetBool("insecure"),
			Timeout:  v.GetDuration("timeout"),
		},
		UID: v.GetString("uid"),
		Output: OutputConfig{
			Dest:        v.GetString("dest"),
			Base64:      v.GetBool("base64"),
			Compress:    v.GetBool("compress"),
			Template:    v.GetString("template"),
			TemplateDir: v.GetString("template_dir"),
		},
		Workers:         v.GetInt("workers"),
		ContinueOnError: v.GetBool("continue_on_error"),
		List:            v.GetBool("list"),
		Verbose:         v.GetBool("verbose"),
		Mail: MailConfig{
			Host:     v.GetString("mail.host"),
			Port:     v.GetInt("mail.port"),
			SSL:      v.GetBool("mail.ssl"),
			Username: v.GetString("mail.user"),
			Password: v.GetString("mail.pass"),
			From:     v.GetString("mail.from"),
			To:       v.GetStringSlice("mail.to"),
			Subject:  v.GetString("mail.subject"),
		},
	}
	return config, config.Validate()
}

func (c Config) Validate() error {
	if c.Grafana.Url == "" {
		return ErrNoGrafanaURL
	}
	if c.List {
		return nil
	}
	if c.UID == "" {
		return ErrNoDashboardUID
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Mail.Enabled() && !c.Output.Base64 && !(c.Output.Compress && c.Output.Dest != "") {
		return ErrMailNeedsSingleFile
	}
	return nil
}
