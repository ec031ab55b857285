// Package signalfile reads offline signal bundles for the CLI: the
// three externally-computed signals for one invoice, plus an optional
// inline vendor list so vendor trust can be resolved without a
// database.
package signalfile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"trustfuse/internal/domain"
)

type Bundle struct {
	InvoiceID string                       `json:"invoice_id,omitempty"`
	Signature domain.SignatureVerification `json:"signature"`
	Anomaly   domain.AnomalySignal         `json:"anomaly"`
	Amounts   domain.ExtractedAmounts      `json:"amounts"`
	Vendors   []VendorEntry                `json:"vendors,omitempty"`
}

type VendorEntry struct {
	VendorName           string `json:"vendor_name"`
	PublicKeyFingerprint string `json:"public_key_fingerprint"`
	Status               string `json:"status,omitempty"`
}

func Load(path string) (*Bundle, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(payload)
}

func Parse(payload []byte) (*Bundle, error) {
	var bundle Bundle
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, fmt.Errorf("decode signal bundle: %w", err)
	}
	for i := range bundle.Vendors {
		entry := &bundle.Vendors[i]
		entry.PublicKeyFingerprint = strings.ToLower(strings.TrimSpace(entry.PublicKeyFingerprint))
		if entry.Status == "" {
			entry.Status = string(domain.VendorActive)
		}
	}
	return &bundle, nil
}

// VendorRecords converts the inline vendor list into registry records.
func (b *Bundle) VendorRecords() []domain.VendorRecord {
	out := make([]domain.VendorRecord, 0, len(b.Vendors))
	for i, entry := range b.Vendors {
		out = append(out, domain.VendorRecord{
			VendorID:             fmt.Sprintf("inline-%d", i+1),
			VendorName:           entry.VendorName,
			PublicKeyFingerprint: entry.PublicKeyFingerprint,
			Status:               domain.VendorStatus(entry.Status),
		})
	}
	return out
}
