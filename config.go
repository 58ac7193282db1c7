package main

import (
	"encoding/csv"
	"fmt"
	"io/ioutil"
	"os"
	"strings"
	"time"

	log "github.com/Financial-Times/go-logger"
	"gopkg.in/yaml.v3"
)

const (
	defaultScrapeIntervalMinutes = 5
	defaultTimeoutSeconds        = 60
	defaultMaxWorkers            = 10
)

var defaultLoyaltyNames = []string{"rewards 2 go"}

type appConfig struct {
	scrapeInterval time.Duration
	timeout        time.Duration
	maxWorkers     int
	loyaltyNames   []string
}

type credentials struct {
	username string
	password string
}

type rawAppConfig struct {
	ScrapeIntervalMinutes int `yaml:"scrape_interval_minutes"`
	TimeoutSeconds        int `yaml:"timeout_seconds"`
	MaxWorkers            int `yaml:"max_workers"`
	LoyaltyProgram        struct {
		Names []string `yaml:"names"`
	} `yaml:"loyalty_program"`
}

type rawCredentials struct {
	Credentials struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"credentials"`
}

func loadAppConfig(path string) (*appConfig, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %v", path, err)
	}

	raw := rawAppConfig{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %v", path, err)
	}

	cfg := &appConfig{
		scrapeInterval: time.Duration(raw.ScrapeIntervalMinutes) * time.Minute,
		timeout:        time.Duration(raw.TimeoutSeconds) * time.Second,
		maxWorkers:     raw.MaxWorkers,
		loyaltyNames:   raw.LoyaltyProgram.Names,
	}

	if raw.ScrapeIntervalMinutes <= 0 {
		cfg.scrapeInterval = defaultScrapeIntervalMinutes * time.Minute
	}
	if raw.TimeoutSeconds <= 0 {
		cfg.timeout = defaultTimeoutSeconds * time.Second
	}
	if raw.MaxWorkers <= 0 {
		cfg.maxWorkers = defaultMaxWorkers
	}
	if len(cfg.loyaltyNames) == 0 {
		cfg.loyaltyNames = defaultLoyaltyNames
	}

	return cfg, nil
}

func loadCredentials(path string) (credentials, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return credentials{}, fmt.Errorf("cannot read credentials file %s: %v", path, err)
	}

	raw := rawCredentials{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return credentials{}, fmt.Errorf("cannot parse credentials file %s: %v", path, err)
	}

	if raw.Credentials.Username == "" || raw.Credentials.Password == "" {
		return credentials{}, fmt.Errorf("credentials file %s is missing a username or password", path)
	}

	return credentials{
		username: raw.Credentials.Username,
		password: raw.Credentials.Password,
	}, nil
}

// loadTargets reads the commander registry CSV. It is called at the
// start of every cycle so registry edits take effect without a restart.
// Expected header columns: store, ip, group, brand, enabled. Rows
// without a store or ip are skipped with a warning.
func loadTargets(path string) ([]target, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open commanders registry %s: %v", path, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot parse commanders registry %s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("commanders registry %s is empty", path)
	}

	columns := make(map[string]int)
	for i, name := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"store", "ip"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("commanders registry %s is missing the %s column", path, required)
		}
	}

	targets := make([]target, 0, len(records)-1)
	for _, record := range records[1:] {
		t := target{
			store:   fieldValue(record, columns, "store"),
			address: fieldValue(record, columns, "ip"),
			group:   fieldValue(record, columns, "group"),
			brand:   fieldValue(record, columns, "brand"),
			enabled: strings.EqualFold(fieldValue(record, columns, "enabled"), "true"),
		}
		if t.store == "" || t.address == "" {
			log.Warnf("Skipping commander row with missing store or ip: %v", record)
			continue
		}
		if t.brand == "" {
			t.brand = "Unknown"
		}
		targets = append(targets, t)
	}

	return targets, nil
}

func fieldValue(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func enabledTargets(targets []target) []target {
	var enabled []target
	for _, t := range targets {
		if t.enabled {
			enabled = append(enabled, t)
		}
	}
	return enabled
}
