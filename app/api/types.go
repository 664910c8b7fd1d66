package api

import (
	"github.com/lysyi3m/screening-comb/app/feed"
	"github.com/lysyi3m/screening-comb/app/monitor"
	"github.com/lysyi3m/screening-comb/app/notify"
	"github.com/lysyi3m/screening-comb/app/scheduler"
	"github.com/lysyi3m/screening-comb/app/venue"
)

type GeneratorInterface interface {
	Run(entries []notify.Entry) (string, error)
}

type ReportSource interface {
	LastReport() *monitor.Report
}

type Trigger interface {
	Trigger() error
}

var (
	_ GeneratorInterface = (*feed.Generator)(nil)
	_ ReportSource       = (*monitor.Monitor)(nil)
	_ Trigger            = (*scheduler.Scheduler)(nil)
)

type Handler struct {
	catalog   *venue.Catalog
	recent    *notify.Recent
	generator GeneratorInterface
	reports   ReportSource
	trigger   Trigger
	feedLimit int
	version   string
}
