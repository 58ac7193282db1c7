package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/Financial-Times/go-logger"
	"github.com/gorilla/mux"
	cli "github.com/jawher/mow.cli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fthealth "github.com/Financial-Times/go-fthealth/v1_1"
)

const (
	appName       = "posproctor"
	appSystemCode = "posproctor"
	appVersion    = "2.2"
)

func main() {
	app := cli.App(appName, "Polls a fleet of Verifone commanders and exposes forecourt health as Prometheus metrics.")

	configPath := app.String(cli.StringOpt{
		Name:   "config",
		Value:  "config.yaml",
		Desc:   "Path to the application config YAML",
		EnvVar: "CONFIG_PATH",
	})

	credentialsPath := app.String(cli.StringOpt{
		Name:   "credentials",
		Value:  "credentials.yaml",
		Desc:   "Path to the shared commander credentials YAML",
		EnvVar: "CREDENTIALS_PATH",
	})

	targetsPath := app.String(cli.StringOpt{
		Name:   "commanders",
		Value:  "commanders.csv",
		Desc:   "Path to the commanders CSV registry",
		EnvVar: "COMMANDERS_PATH",
	})

	listenAddress := app.String(cli.StringOpt{
		Name:   "listen-address",
		Value:  ":8000",
		Desc:   "Address for the metrics and status HTTP server",
		EnvVar: "LISTEN_ADDRESS",
	})

	logLevel := app.String(cli.StringOpt{
		Name:   "log-level",
		Value:  "info",
		Desc:   "Log level (debug, info, warn, error)",
		EnvVar: "LOG_LEVEL",
	})

	app.Action = func() {
		log.InitLogger(appName, *logLevel)
		log.Infof("Starting %s", appName)

		cfg, err := loadAppConfig(*configPath)
		if err != nil {
			panic(fmt.Sprintf("Cannot load application config: %v", err))
		}

		creds, err := loadCredentials(*credentialsPath)
		if err != nil {
			panic(fmt.Sprintf("Cannot load credentials: %v", err))
		}

		httpClient := newCommanderHTTPClient(cfg.timeout)
		defer httpClient.CloseIdleConnections()

		registry := prometheus.NewRegistry()
		m := newMetrics(registry)
		m.appInfo.WithLabelValues(appVersion, cfg.scrapeInterval.String(), cfg.timeout.String(), strconv.Itoa(cfg.maxWorkers)).Set(1)

		tokens := newTokenCache(defaultTokenTTL)
		breaker := newAuthCircuitBreaker()
		tracker := newErrorStateTracker()
		orchestrator := newScrapeOrchestrator(creds, cfg, httpClient, tokens, breaker, tracker, m)

		handler := &httpHandler{
			tracker:      tracker,
			orchestrator: orchestrator,
			gtgWindow:    3 * cfg.scrapeInterval,
		}

		go listen(handler, orchestrator, registry, *targetsPath, cfg.scrapeInterval, *listenAddress)
		go handleSignals(httpClient)

		runLoop(orchestrator, m, *targetsPath, cfg)
	}

	if err := app.Run(os.Args); err != nil {
		panic(fmt.Sprintf("Cannot run the app. Error was: %v", err))
	}
}

func listen(handler *httpHandler, orchestrator *scrapeOrchestrator, registry *prometheus.Registry, targetsPath string, scrapeInterval time.Duration, listenAddress string) {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.HandleFunc("/__health", fthealth.Handler(newHealthService(orchestrator, targetsPath, scrapeInterval)))
	r.HandleFunc("/__gtg", handler.handleGoodToGo)
	r.HandleFunc("/targets", handler.handleTargets)

	log.Infof("Metrics server listening on %s", listenAddress)
	if err := http.ListenAndServe(listenAddress, r); err != nil {
		panic(fmt.Sprintf("Cannot set up HTTP listener. Error was: %v", err))
	}
}

// runLoop is the driver: reload the registry, run one cycle, sleep.
// Cycles never overlap.
func runLoop(orchestrator *scrapeOrchestrator, m *metrics, targetsPath string, cfg *appConfig) {
	for {
		targets, err := loadTargets(targetsPath)
		if err != nil {
			log.WithError(err).Errorf("Cannot load commanders registry from %s", targetsPath)
		} else {
			enabled := enabledTargets(targets)
			m.totalCommanders.WithLabelValues("true").Set(float64(len(enabled)))
			m.totalCommanders.WithLabelValues("false").Set(float64(len(targets) - len(enabled)))

			if len(enabled) == 0 {
				log.Warnf("No enabled commanders found in %s. Nothing to monitor.", targetsPath)
			} else {
				orchestrator.runCycle(targets)
			}
		}

		log.Infof("Waiting %v until the next scrape cycle.", cfg.scrapeInterval)
		time.Sleep(cfg.scrapeInterval)
	}
}

// handleSignals is the single shutdown path for the shared transport.
func handleSignals(httpClient *http.Client) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals

	log.Infof("Received signal %v, shutting down.", sig)
	httpClient.CloseIdleConnections()
	os.Exit(0)
}
