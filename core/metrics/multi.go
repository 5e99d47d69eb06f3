package metrics

import "errors"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCascadeRun forwards the run to every sink. All sinks are attempted;
// their errors are joined.
func (m *MultiSink) RecordCascadeRun(run CascadeRun) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordCascadeRun(run))
	}
	return errors.Join(errs...)
}

// RecordAssignment forwards assignment events to sinks supporting them.
func (m *MultiSink) RecordAssignment(ev AssignmentEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(AssignmentRecorder); ok {
			errs = append(errs, rec.RecordAssignment(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordTransition forwards transition events to sinks supporting them.
func (m *MultiSink) RecordTransition(ev TransitionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(TransitionRecorder); ok {
			errs = append(errs, rec.RecordTransition(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordSessionCount forwards the session count to sinks supporting it.
func (m *MultiSink) RecordSessionCount(n int) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(SessionCountRecorder); ok {
			errs = append(errs, rec.RecordSessionCount(n))
		}
	}
	return errors.Join(errs...)
}

// Close releases every sink holding resources.
func (m *MultiSink) Close() { closeSinks(m.Sinks) }
