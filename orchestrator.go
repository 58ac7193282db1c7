package main

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/Financial-Times/go-logger"
)

// scrapeOrchestrator runs one poll cycle over the fleet: reset the
// cycle-scoped circuit breaker, fan out one task per enabled commander
// over a bounded worker pool, block until every task has finished, then
// stamp the cycle metrics. Cycles are strictly sequential; the driver
// loop in main sleeps between them.
type scrapeOrchestrator struct {
	creds        credentials
	loyaltyNames []string
	maxWorkers   int

	httpClient *http.Client
	tokens     *tokenCache
	breaker    *authCircuitBreaker
	tracker    *errorStateTracker
	metrics    *metrics

	now func() time.Time

	sync.Mutex
	lastCycleCompleted time.Time
}

func newScrapeOrchestrator(creds credentials, cfg *appConfig, httpClient *http.Client, tokens *tokenCache, breaker *authCircuitBreaker, tracker *errorStateTracker, m *metrics) *scrapeOrchestrator {
	return &scrapeOrchestrator{
		creds:        creds,
		loyaltyNames: cfg.loyaltyNames,
		maxWorkers:   cfg.maxWorkers,
		httpClient:   httpClient,
		tokens:       tokens,
		breaker:      breaker,
		tracker:      tracker,
		metrics:      m,
		now:          time.Now,
	}
}

// runCycle polls every enabled target once and returns one outcome per
// target. A slow commander delays cycle completion but never blocks the
// other commanders' tasks.
func (o *scrapeOrchestrator) runCycle(targets []target) []scrapeOutcome {
	enabled := enabledTargets(targets)
	log.Infof("Starting scrape cycle for %d commanders with %d workers", len(enabled), o.maxWorkers)

	cycleStart := o.now()
	o.breaker.resetAll()

	outcomes := make([]scrapeOutcome, len(enabled))
	var wg sync.WaitGroup
	workers := make(chan struct{}, o.maxWorkers)

	for i, t := range enabled {
		wg.Add(1)
		go func(i int, t target) {
			defer wg.Done()
			workers <- struct{}{}
			defer func() { <-workers }()
			outcomes[i] = o.scrapeTarget(t)
		}(i, t)
	}
	wg.Wait()

	cycleDuration := o.now().Sub(cycleStart)
	o.metrics.scrapeCycleDuration.WithLabelValues(strconv.Itoa(o.maxWorkers)).Observe(cycleDuration.Seconds())
	o.metrics.lastScrapeTimestamp.Set(float64(o.now().Unix()))

	o.Lock()
	o.lastCycleCompleted = o.now()
	o.Unlock()

	log.Infof("Completed scrape cycle for %d commanders in %.2fs", len(enabled), cycleDuration.Seconds())
	return outcomes
}

// lastCycle reports when the most recent cycle completed; zero before
// the first one finishes.
func (o *scrapeOrchestrator) lastCycle() time.Time {
	o.Lock()
	defer o.Unlock()
	return o.lastCycleCompleted
}

// scrapeTarget runs the authenticate → diagnostics → loyalty → primary
// sequence for one commander. A diagnostics failure does not prevent
// the payment queries from being attempted; the circuit breaker keeps a
// fully unreachable commander from being hammered by the later steps.
func (o *scrapeOrchestrator) scrapeTarget(t target) scrapeOutcome {
	log.Infof("Fetching metrics for commander %s (%s) - %s", t.store, t.address, t.brand)

	o.metrics.concurrentQueries.Inc()
	defer o.metrics.concurrentQueries.Dec()

	client := newCommanderClient(t.address, o.creds, o.httpClient, o.tokens, o.breaker)

	diagStart := o.now()
	snapshot, diagErr := client.fetchForecourtDiagnostics()
	o.observeQuery(t, "diagnostics", o.now().Sub(diagStart))

	if diagErr != nil {
		o.countFailure(t, diagErr)
		log.WithError(diagErr).Errorf("[%s] Cannot fetch forecourt diagnostics", t.store)
	} else {
		o.emitDiagnostics(t, snapshot)
	}

	loyaltyStart := o.now()
	loyaltyConnected, loyaltyErr := client.fetchLoyaltyFepStatus(o.loyaltyNames)
	o.observeQuery(t, "loyalty", o.now().Sub(loyaltyStart))

	if loyaltyErr != nil {
		o.countFailure(t, loyaltyErr)
		log.WithError(loyaltyErr).Warnf("[%s] Cannot fetch loyalty FEP status", t.store)
	} else if loyaltyConnected == nil {
		o.metrics.queryFailures.WithLabelValues(t.store, t.address, t.group, t.brand, string(errKindNoData)).Inc()
		log.Warnf("[%s] No loyalty FEP data retrieved.", t.store)
	} else {
		o.metrics.loyaltyFepStatus.WithLabelValues(targetLabelValues(t)...).Set(boolToFloat64(*loyaltyConnected))
	}

	primaryStart := o.now()
	primary, primaryErr := client.fetchPrimaryFepStatus()
	o.observeQuery(t, "primary_fep", o.now().Sub(primaryStart))

	if primaryErr != nil {
		o.countFailure(t, primaryErr)
		log.WithError(primaryErr).Warnf("[%s] Cannot fetch primary FEP status", t.store)
	} else if primary == nil {
		o.metrics.queryFailures.WithLabelValues(t.store, t.address, t.group, t.brand, string(errKindNoData)).Inc()
		log.Warnf("[%s] No primary FEP data retrieved.", t.store)
	} else {
		o.metrics.primaryFepStatus.WithLabelValues(t.store, t.address, t.group, t.brand, primary.name).Set(boolToFloat64(primary.connected))
	}

	outcome := scrapeOutcome{target: t, timestamp: o.now()}
	if diagErr == nil {
		outcome.success = true
		entry := o.tracker.recordSuccess(t.address)
		o.metrics.scrapeSuccess.WithLabelValues(targetLabelValues(t)...).Set(1)
		o.metrics.consecutiveFailures.WithLabelValues(targetLabelValues(t)...).Set(0)
		o.metrics.lastSuccessfulConnection.WithLabelValues(targetLabelValues(t)...).Set(float64(entry.lastSuccess.Unix()))
		log.Infof("Successfully fetched metrics for %s (%s)", t.store, t.address)
	} else {
		outcome.errorKind = diagErr.kind
		outcome.errorMessage = diagErr.Error()
		entry := o.tracker.recordFailure(t.address, diagErr.kind, diagErr.Error())
		o.metrics.scrapeSuccess.WithLabelValues(targetLabelValues(t)...).Set(0)
		o.metrics.consecutiveFailures.WithLabelValues(targetLabelValues(t)...).Set(float64(entry.consecutiveFailures))
	}

	return outcome
}

func (o *scrapeOrchestrator) emitDiagnostics(t target, snapshot *diagnosticsSnapshot) {
	o.metrics.controllerStatus.WithLabelValues(targetLabelValues(t)...).Set(boolToFloat64(snapshot.controllerOnline))

	for _, pump := range snapshot.pumps {
		o.metrics.pumpStatus.WithLabelValues(t.store, t.address, pump.id, t.group, t.brand).Set(boolToFloat64(pump.online))
	}
	for _, dcr := range snapshot.dcrs {
		o.metrics.dcrStatus.WithLabelValues(t.store, t.address, dcr.id, t.group, t.brand).Set(boolToFloat64(dcr.online))
	}
	for _, display := range snapshot.priceDisplays {
		o.metrics.priceDisplayStatus.WithLabelValues(t.store, t.address, display.id, t.group, t.brand).Set(boolToFloat64(display.online))
	}
}

func (o *scrapeOrchestrator) observeQuery(t target, endpoint string, duration time.Duration) {
	o.metrics.queryDuration.WithLabelValues(t.store, t.address, t.group, t.brand, endpoint).Observe(duration.Seconds())
}

func (o *scrapeOrchestrator) countFailure(t target, serr *scrapeError) {
	o.metrics.queryFailures.WithLabelValues(t.store, t.address, t.group, t.brand, string(serr.kind)).Inc()

	switch serr.kind {
	case errKindTimeout:
		o.metrics.timeoutErrors.WithLabelValues(targetLabelValues(t)...).Inc()
	case errKindConnection:
		o.metrics.connectionErrors.WithLabelValues(targetLabelValues(t)...).Inc()
	case errKindHTTPAuth, errKindAuthDenied:
		o.metrics.authFailures.WithLabelValues(targetLabelValues(t)...).Inc()
	}
}
