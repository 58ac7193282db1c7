package main

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

type fepDetailElement struct {
	FepName          string `xml:"fepName,attr"`
	IsPrimary        string `xml:"isPrimary,attr"`
	ConnectionStatus string `xml:"connectionStatus"`
}

// parseLoyaltyFepStatus searches a vpaymentdiagnostics document for a
// processor whose name matches one of the configured loyalty program
// names, case-insensitively. found is false when no processor matches;
// callers must not conflate that with a disconnected processor.
func parseLoyaltyFepStatus(data []byte, loyaltyNames []string) (connected bool, found bool, err error) {
	fepDetails, err := decodeFepDetails(data)
	if err != nil {
		return false, false, err
	}

	for _, fepDetail := range fepDetails {
		if !isLoyaltyFep(fepDetail.FepName, loyaltyNames) {
			continue
		}
		if fepDetail.ConnectionStatus == "" {
			continue
		}
		return strings.EqualFold(fepDetail.ConnectionStatus, "true"), true, nil
	}

	return false, false, nil
}

// parsePrimaryFepStatus returns the name and connection state of the
// primary-flagged processor, or nil when none is flagged primary. The
// connection text is tri-valued: anything other than "True", including
// "Undetermined", counts as disconnected.
func parsePrimaryFepStatus(data []byte) (*primaryFepStatus, error) {
	fepDetails, err := decodeFepDetails(data)
	if err != nil {
		return nil, err
	}

	for _, fepDetail := range fepDetails {
		if !strings.EqualFold(fepDetail.IsPrimary, "true") {
			continue
		}
		if fepDetail.ConnectionStatus == "" {
			continue
		}
		return &primaryFepStatus{
			name:      fepDetail.FepName,
			connected: strings.EqualFold(fepDetail.ConnectionStatus, "true"),
		}, nil
	}

	return nil, nil
}

func decodeFepDetails(data []byte) ([]fepDetailElement, error) {
	var fepDetails []fepDetailElement

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return fepDetails, nil
		}
		if err != nil {
			return nil, err
		}

		startElement, ok := token.(xml.StartElement)
		if !ok || startElement.Name.Local != "fepDetail" {
			continue
		}

		var fepDetail fepDetailElement
		if err := decoder.DecodeElement(&fepDetail, &startElement); err != nil {
			return nil, err
		}
		fepDetail.ConnectionStatus = strings.TrimSpace(fepDetail.ConnectionStatus)
		fepDetails = append(fepDetails, fepDetail)
	}
}

func isLoyaltyFep(fepName string, loyaltyNames []string) bool {
	for _, loyaltyName := range loyaltyNames {
		if strings.EqualFold(fepName, loyaltyName) {
			return true
		}
	}
	return false
}
