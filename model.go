package main

import "time"

// target is one commander row from the registry CSV. Identity is the
// network address; the rest is labelling.
type target struct {
	store   string
	address string
	group   string
	brand   string
	enabled bool
}

type deviceStatus struct {
	id     string
	online bool
}

// diagnosticsSnapshot is the normalized result of one forecourt
// diagnostics query. Device lists keep document order.
type diagnosticsSnapshot struct {
	controllerOnline bool
	pumps            []deviceStatus
	dcrs             []deviceStatus
	priceDisplays    []deviceStatus
}

type primaryFepStatus struct {
	name      string
	connected bool
}

type errorKind string

const (
	errKindAuthDenied errorKind = "auth_denied"
	errKindTimeout    errorKind = "timeout"
	errKindConnection errorKind = "connection"
	errKindHTTPAuth   errorKind = "http_auth"
	errKindHTTPOther  errorKind = "http_other"
	errKindNoData     errorKind = "no_data"
	errKindParse      errorKind = "parse"
	errKindUnknown    errorKind = "unknown"
)

// scrapeOutcome is the per-target result of one cycle. Success means the
// diagnostics query completed; loyalty and primary FEP data are optional.
type scrapeOutcome struct {
	target       target
	success      bool
	errorKind    errorKind
	errorMessage string
	timestamp    time.Time
}
