package domain

import "time"

type VendorStatus string

const (
	VendorActive   VendorStatus = "active"
	VendorInactive VendorStatus = "inactive"
)

// VendorRecord is owned by the vendor registry. The fusion core looks
// records up by fingerprint and never mutates them.
type VendorRecord struct {
	VendorID             string
	VendorName           string
	PublicKeyFingerprint string
	Status               VendorStatus
	CreatedAt            time.Time
}

type VendorTrustStatus string

const (
	VendorTrustNotVerified        VendorTrustStatus = "not_verified"
	VendorTrustUnregistered       VendorTrustStatus = "unregistered_vendor"
	VendorTrustMismatch           VendorTrustStatus = "certificate_mismatch"
	VendorTrustInactive           VendorTrustStatus = "vendor_inactive"
	VendorTrustVerified           VendorTrustStatus = "verified"
	VendorTrustVerifiedSelfSigned VendorTrustStatus = "verified_self_signed"
)

// Unresolved reports whether the trust status leaves the vendor
// identity claim unresolved and warrants a leading explanation.
func (s VendorTrustStatus) Unresolved() bool {
	switch s {
	case VendorTrustMismatch, VendorTrustUnregistered, VendorTrustInactive:
		return true
	}
	return false
}
