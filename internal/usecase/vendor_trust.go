package usecase

import "trustfuse/internal/domain"

// ResolveVendorTrust binds a signature outcome to a registered vendor
// identity. The rule order is the contract: an untrustworthy signature
// forecloses any vendor claim, a missing registration beats a
// fingerprint check, and a wrong key beats a lapsed registration.
// The function is total and never mutates the vendor record.
func ResolveVendorTrust(status domain.SignatureStatus, signerFingerprint string, vendor *domain.VendorRecord) domain.VendorTrustStatus {
	switch status {
	case domain.SignatureInvalid, domain.SignatureUnsigned, domain.SignatureUnknown:
		return domain.VendorTrustNotVerified
	}
	if vendor == nil {
		return domain.VendorTrustUnregistered
	}
	if !fingerprintsEqual(signerFingerprint, vendor.PublicKeyFingerprint) {
		return domain.VendorTrustMismatch
	}
	if vendor.Status != domain.VendorActive {
		return domain.VendorTrustInactive
	}
	switch status {
	case domain.SignatureTrusted:
		return domain.VendorTrustVerified
	case domain.SignatureSelfSignedOrUntrusted:
		return domain.VendorTrustVerifiedSelfSigned
	}
	// Unreachable given the closed status domain; conservative anyway.
	return domain.VendorTrustNotVerified
}

// fingerprintsEqual compares hex fingerprints byte for byte after
// folding A-F to lower case. No fuzzy matching.
func fingerprintsEqual(a, b string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca := a[i]
		cb := b[i]
		if ca >= 'A' && ca <= 'F' {
			ca = ca - 'A' + 'a'
		}
		if cb >= 'A' && cb <= 'F' {
			cb = cb - 'A' + 'a'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
