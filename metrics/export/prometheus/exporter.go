// Package prometheus renders crewauth engine counters in Prometheus text
// exposition format.
package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	crewauth "github.com/DEPthes/crewauth"
	"github.com/DEPthes/crewauth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() crewauth.MetricsSnapshot
}

// Exporter reads counter snapshots from an engine and renders them as
// Prometheus text.
type Exporter struct {
	source metricsSource
}

// NewExporter creates an Exporter reading from engine.
func NewExporter(engine *crewauth.Engine) *Exporter {
	return &Exporter{source: engine}
}

// NewExporterFromSource creates an Exporter from a custom snapshot source.
func NewExporterFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler returns an http.Handler serving the rendered metrics.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render returns the current counters in text exposition format.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}

	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(2048)
	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}
	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(help)
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}
