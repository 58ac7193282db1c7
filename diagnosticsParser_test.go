package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecourtDiagnosticsXML = `<?xml version="1.0" encoding="UTF-8"?>
<forecourtDiagnostics xmlns="urn:vfi-sapphire:diagnostics.2017-01-17">
  <controller status="Online"/>
  <fuelingPoint sysid="5">
    <device type="Pump" status="Online" isAvailable="true"/>
    <device type="DCR" status="Online" isAvailable="false"/>
  </fuelingPoint>
  <fuelingPoint>
    <device type="Pump" status="Online" isAvailable="true"/>
  </fuelingPoint>
  <fuelingPoint sysid="7">
    <device type="Pump" status="Offline" isAvailable="true"/>
    <device type="DCR" status="Online" isAvailable="true"/>
  </fuelingPoint>
  <device type="Fuel Price Display" id="1" status="Online" isAvailable="true"/>
  <device type="Fuel Price Display" status="Online" isAvailable="true"/>
  <device type="Fuel Price Display" id="2" status="Offline" isAvailable="true"/>
</forecourtDiagnostics>`

func TestParseForecourtDiagnostics(t *testing.T) {
	snapshot, err := parseForecourtDiagnostics([]byte(forecourtDiagnosticsXML))
	require.NoError(t, err)

	assert.True(t, snapshot.controllerOnline)

	assert.Equal(t, []deviceStatus{
		{id: "5", online: true},
		{id: "7", online: false},
	}, snapshot.pumps, "Fueling point without a sysid should contribute no pump entry.")

	assert.Equal(t, []deviceStatus{
		{id: "5", online: false},
		{id: "7", online: true},
	}, snapshot.dcrs, "A DCR that is Online but unavailable counts as offline.")

	assert.Equal(t, []deviceStatus{
		{id: "1", online: true},
		{id: "2", online: false},
	}, snapshot.priceDisplays, "A price display without an id is skipped with a warning.")
}

func TestParseForecourtDiagnosticsControllerOffline(t *testing.T) {
	snapshot, err := parseForecourtDiagnostics([]byte(`<forecourtDiagnostics><controller status="Offline"/></forecourtDiagnostics>`))
	require.NoError(t, err)
	assert.False(t, snapshot.controllerOnline)
}

func TestParseForecourtDiagnosticsNoController(t *testing.T) {
	snapshot, err := parseForecourtDiagnostics([]byte(`<forecourtDiagnostics/>`))
	require.NoError(t, err)

	assert.False(t, snapshot.controllerOnline, "Missing controller element means offline.")
	assert.Empty(t, snapshot.pumps)
	assert.Empty(t, snapshot.dcrs)
	assert.Empty(t, snapshot.priceDisplays)
}

func TestParseForecourtDiagnosticsPumpAvailabilityCombinations(t *testing.T) {
	testCases := []struct {
		name        string
		status      string
		isAvailable string
		online      bool
	}{
		{"online and available", "Online", "true", true},
		{"online but unavailable", "Online", "false", false},
		{"offline but available", "Offline", "true", false},
		{"missing availability", "Online", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc := `<forecourtDiagnostics><fuelingPoint sysid="5"><device type="Pump" status="` +
				tc.status + `" isAvailable="` + tc.isAvailable + `"/></fuelingPoint></forecourtDiagnostics>`

			snapshot, err := parseForecourtDiagnostics([]byte(doc))
			require.NoError(t, err)
			require.Len(t, snapshot.pumps, 1)
			assert.Equal(t, deviceStatus{id: "5", online: tc.online}, snapshot.pumps[0])
		})
	}
}

func TestParseForecourtDiagnosticsFuelingPointWithoutPumpDevice(t *testing.T) {
	doc := `<forecourtDiagnostics><fuelingPoint sysid="5"><device type="DCR" status="Online" isAvailable="true"/></fuelingPoint></forecourtDiagnostics>`

	snapshot, err := parseForecourtDiagnostics([]byte(doc))
	require.NoError(t, err)

	assert.Empty(t, snapshot.pumps, "A fueling point without a pump device contributes no pump entry.")
	assert.Equal(t, []deviceStatus{{id: "5", online: true}}, snapshot.dcrs)
}

func TestParseForecourtDiagnosticsMalformedXML(t *testing.T) {
	_, err := parseForecourtDiagnostics([]byte(`<forecourtDiagnostics><controller`))
	assert.Error(t, err)
}
