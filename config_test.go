package main

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadAppConfig(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `
scrape_interval_minutes: 2
timeout_seconds: 30
max_workers: 4
loyalty_program:
  names:
    - "Rewards 2 Go"
    - "Other Rewards"
`)

	cfg, err := loadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.scrapeInterval)
	assert.Equal(t, 30*time.Second, cfg.timeout)
	assert.Equal(t, 4, cfg.maxWorkers)
	assert.Equal(t, []string{"Rewards 2 Go", "Other Rewards"}, cfg.loyaltyNames)
}

func TestLoadAppConfigDefaults(t *testing.T) {
	path := writeTempFile(t, "config.yaml", `{}`)

	cfg, err := loadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.scrapeInterval)
	assert.Equal(t, 60*time.Second, cfg.timeout)
	assert.Equal(t, 10, cfg.maxWorkers)
	assert.Equal(t, []string{"rewards 2 go"}, cfg.loyaltyNames)
}

func TestLoadAppConfigMissingFile(t *testing.T) {
	_, err := loadAppConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadCredentials(t *testing.T) {
	path := writeTempFile(t, "credentials.yaml", `
credentials:
  username: admin
  password: secret
`)

	creds, err := loadCredentials(path)
	require.NoError(t, err)

	assert.Equal(t, "admin", creds.username)
	assert.Equal(t, "secret", creds.password)
}

func TestLoadCredentialsMissingPassword(t *testing.T) {
	path := writeTempFile(t, "credentials.yaml", `
credentials:
  username: admin
`)

	_, err := loadCredentials(path)
	assert.Error(t, err, "Credentials without a password are a fatal startup problem.")
}

func TestLoadTargets(t *testing.T) {
	path := writeTempFile(t, "commanders.csv", `store,ip,group,brand,enabled
Store One,10.0.0.1,east,FuelCo,true
Store Two,10.0.0.2,west,,false
,10.0.0.3,east,FuelCo,true
Store Four,,east,FuelCo,true
`)

	targets, err := loadTargets(path)
	require.NoError(t, err)

	require.Len(t, targets, 2, "Rows without a store or ip are skipped.")
	assert.Equal(t, target{store: "Store One", address: "10.0.0.1", group: "east", brand: "FuelCo", enabled: true}, targets[0])
	assert.Equal(t, target{store: "Store Two", address: "10.0.0.2", group: "west", brand: "Unknown", enabled: false}, targets[1])

	assert.Len(t, enabledTargets(targets), 1)
}

func TestLoadTargetsMissingRequiredColumn(t *testing.T) {
	path := writeTempFile(t, "commanders.csv", `store,group,brand,enabled
Store One,east,FuelCo,true
`)

	_, err := loadTargets(path)
	assert.Error(t, err)
}

func TestLoadTargetsMissingFile(t *testing.T) {
	_, err := loadTargets(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
