// Package otel bridges crewauth engine counters to an OpenTelemetry meter
// through observable counters.
package otel

import (
	"context"
	"errors"
	"fmt"

	crewauth "github.com/DEPthes/crewauth"
	"github.com/DEPthes/crewauth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() crewauth.MetricsSnapshot
}

type observedCounter struct {
	id         crewauth.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter registers one observable counter per engine counter and reports
// snapshot values on every meter collection.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
}

// NewExporter bridges engine counters onto meter.
func NewExporter(meter metric.Meter, engine *crewauth.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource bridges a custom snapshot source onto meter.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(internaldefs.CounterDefs)),
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs))
	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	registration, err := meter.RegisterCallback(exporter.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register metrics callback: %w", err)
	}
	exporter.registration = registration

	return exporter, nil
}

func (e *Exporter) observe(_ context.Context, observer metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
