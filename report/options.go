package report

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// DefaultWorkers is the number of panel images fetched at the same time.
const DefaultWorkers = 5

// Options tunes how a report is produced. The zero value is usable.
type Options struct {
	// Fs receives every file the report writes. Defaults to the OS filesystem.
	Fs     afero.Fs
	Logger *log.Logger

	// Workers bounds the in-flight image requests.
	Workers int

	// ContinueOnError keeps fetching images after one fails and marks the
	// failed panels instead of aborting the report.
	ContinueOnError bool
}

func (o Options) withDefaults() Options {
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	return o
}
