// Package convert maps scan results to stored history entries and back.
package convert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/go-tangra/go-tangra-assets/internal/plugin"
	"github.com/go-tangra/go-tangra-assets/internal/store"
)

// Origin identifies the machine and user a scan was taken on.
type Origin struct {
	Hostname string
	Username string
}

// RecordsToEntry converts a completed scan to a store entry with a fresh
// scan UUID. The system serial is taken from the first motherboard record.
func RecordsToEntry(records []plugin.ScanRecord, header string, origin Origin, scannedAt time.Time) (*store.ScanEntry, error) {
	if records == nil {
		records = []plugin.ScanRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal records to JSON: %w", err)
	}
	if scannedAt.IsZero() {
		scannedAt = time.Now().UTC()
	}

	return &store.ScanEntry{
		ScanUUID:     uuid.NewString(),
		Hostname:     origin.Hostname,
		Username:     origin.Username,
		SystemSerial: SystemSerial(records),
		Header:       header,
		RecordCount:  len(records),
		ScannedAt:    scannedAt,
		RecordsJSON:  string(data),
	}, nil
}

// EntryToRecords converts a stored entry back to scan records.
func EntryToRecords(e *store.ScanEntry) ([]plugin.ScanRecord, error) {
	var records []plugin.ScanRecord
	if err := json.Unmarshal([]byte(e.RecordsJSON), &records); err != nil {
		return nil, fmt.Errorf("unmarshal records JSON: %w", err)
	}
	return records, nil
}

// SystemSerial returns the serial number of the first motherboard record
// that has one, or "".
func SystemSerial(records []plugin.ScanRecord) string {
	for _, r := range records {
		if r.Category == plugin.CategoryMotherboard {
			if s := plugin.OrUnknown(r.SerialNumber); s != plugin.Unknown {
				return s
			}
		}
	}
	return ""
}
