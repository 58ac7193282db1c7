package main

import (
	"bytes"
	"encoding/xml"
	"io"

	log "github.com/Financial-Times/go-logger"
)

const (
	statusOnline = "Online"

	deviceTypePump         = "Pump"
	deviceTypeDCR          = "DCR"
	deviceTypePriceDisplay = "Fuel Price Display"
)

type fuelingPointElement struct {
	SysID   string          `xml:"sysid,attr"`
	Devices []deviceElement `xml:"device"`
}

type deviceElement struct {
	Type        string `xml:"type,attr"`
	ID          string `xml:"id,attr"`
	Status      string `xml:"status,attr"`
	IsAvailable string `xml:"isAvailable,attr"`
}

// parseForecourtDiagnostics turns a vforecourtdiagnostics document into
// a diagnosticsSnapshot. Sub-entities with missing identifiers are
// skipped rather than failing the whole snapshot: a fueling point
// without a sysid contributes no entries, and a price display without
// an id is skipped with a warning.
func parseForecourtDiagnostics(data []byte) (*diagnosticsSnapshot, error) {
	snapshot := &diagnosticsSnapshot{
		pumps:         []deviceStatus{},
		dcrs:          []deviceStatus{},
		priceDisplays: []deviceStatus{},
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		startElement, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch startElement.Name.Local {
		case "controller":
			snapshot.controllerOnline = attrValue(startElement, "status") == statusOnline
		case "fuelingPoint":
			var fuelingPoint fuelingPointElement
			if err := decoder.DecodeElement(&fuelingPoint, &startElement); err != nil {
				return nil, err
			}
			if fuelingPoint.SysID == "" {
				continue
			}
			if pump, found := findDevice(fuelingPoint.Devices, deviceTypePump); found {
				snapshot.pumps = append(snapshot.pumps, deviceStatus{id: fuelingPoint.SysID, online: isDeviceOnline(pump)})
			}
			if dcr, found := findDevice(fuelingPoint.Devices, deviceTypeDCR); found {
				snapshot.dcrs = append(snapshot.dcrs, deviceStatus{id: fuelingPoint.SysID, online: isDeviceOnline(dcr)})
			}
		case "device":
			if attrValue(startElement, "type") != deviceTypePriceDisplay {
				continue
			}
			var display deviceElement
			if err := decoder.DecodeElement(&display, &startElement); err != nil {
				return nil, err
			}
			if display.ID == "" {
				log.Warnf("Fuel price display is missing an id attribute, skipping.")
				continue
			}
			snapshot.priceDisplays = append(snapshot.priceDisplays, deviceStatus{id: display.ID, online: isDeviceOnline(display)})
		}
	}

	return snapshot, nil
}

// isDeviceOnline requires both the status and the availability flag: a
// device that is Online but unavailable counts as offline.
func isDeviceOnline(device deviceElement) bool {
	return device.Status == statusOnline && device.IsAvailable == "true"
}

func findDevice(devices []deviceElement, deviceType string) (deviceElement, bool) {
	for _, device := range devices {
		if device.Type == deviceType {
			return device, true
		}
	}
	return deviceElement{}, false
}

func attrValue(element xml.StartElement, name string) string {
	for _, attr := range element.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}
