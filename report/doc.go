// Package report surfaces linear-handle leaks as diagnosable events.
//
// A leak is a handle that reached its abort path instead of its normal
// consumption path - a protocol violation, not a memory leak. The registry
// records one Event per abort-path finalization; the Reporter accumulates
// them and applies the configured severity policy:
//
//	PolicyReport  accumulate only, query via Events/Count (default)
//	PolicyLog     accumulate and emit a zap warning per event
//	PolicyAbort   accumulate, log at fatal level, terminate the process
//
// The policy spectrum is part of the contract: hosts choose whether a leak
// is a statistic, a log line, or a crash.
//
// Observers can subscribe for live notification, e.g. to stream events into
// a monitoring UI:
//
//	rep.Subscribe(myObserver)
//	defer rep.Unsubscribe(myObserver)
//
// Logging uses a no-op zap logger unless SetLogger is called.
package report
