package main

import (
	"fmt"
	"time"

	fthealth "github.com/Financial-Times/go-fthealth/v1_1"
)

const healthcheckTimeout = 10 * time.Second

// newHealthService builds the /__health checks for the exporter itself:
// the commander registry must be readable and scrape cycles must keep
// completing. Individual commander health is what the metrics are for,
// so a down commander does not fail these checks.
func newHealthService(orchestrator *scrapeOrchestrator, targetsPath string, scrapeInterval time.Duration) fthealth.TimedHealthCheck {
	return fthealth.TimedHealthCheck{
		HealthCheck: fthealth.HealthCheck{
			SystemCode:  appSystemCode,
			Name:        appName,
			Description: "Polls Verifone commanders and exposes forecourt health as Prometheus metrics.",
			Checks: []fthealth.Check{
				newRegistryCheck(targetsPath),
				newCycleRecencyCheck(orchestrator, scrapeInterval),
			},
		},
		Timeout: healthcheckTimeout,
	}
}

func newRegistryCheck(targetsPath string) fthealth.Check {
	return fthealth.Check{
		BusinessImpact:   "Without a readable commander registry no forecourt health data is collected.",
		Name:             "Commander registry readable",
		PanicGuide:       "Check that the commanders CSV is mounted and well-formed.",
		Severity:         1,
		TechnicalSummary: "The commanders CSV could not be read or parsed.",
		Checker: func() (string, error) {
			targets, err := loadTargets(targetsPath)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d commanders configured, %d enabled", len(targets), len(enabledTargets(targets))), nil
		},
	}
}

func newCycleRecencyCheck(orchestrator *scrapeOrchestrator, scrapeInterval time.Duration) fthealth.Check {
	return fthealth.Check{
		BusinessImpact:   "Forecourt health metrics are stale; operators may act on outdated device states.",
		Name:             "Scrape cycle recency",
		PanicGuide:       "Check the exporter logs for a stuck or failing scrape cycle.",
		Severity:         2,
		TechnicalSummary: "No scrape cycle has completed within the expected window.",
		Checker: func() (string, error) {
			lastCycle := orchestrator.lastCycle()
			if lastCycle.IsZero() {
				return "", fmt.Errorf("no scrape cycle has completed yet")
			}
			if sinceLast := time.Since(lastCycle); sinceLast > 3*scrapeInterval {
				return "", fmt.Errorf("last scrape cycle completed %v ago", sinceLast)
			}
			return fmt.Sprintf("last scrape cycle completed at %s", lastCycle.Format(time.RFC3339)), nil
		},
	}
}
