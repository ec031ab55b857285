package usecase

import "trustfuse/internal/domain"

// DeriveSignatureStatus folds the external validator's raw outcome into
// a closed signature status. It is total: every input combination maps
// to exactly one status, and a malformed result (valid but with an
// undetermined chain, or vice versa) degrades to unknown, never to
// trusted.
func DeriveSignatureStatus(sig domain.SignatureVerification) domain.SignatureStatus {
	if !sig.Present {
		return domain.SignatureUnsigned
	}
	if sig.CryptoValid == nil {
		return domain.SignatureUnknown
	}
	if !*sig.CryptoValid {
		return domain.SignatureInvalid
	}
	if sig.ChainTrusted == nil {
		return domain.SignatureUnknown
	}
	if *sig.ChainTrusted {
		return domain.SignatureTrusted
	}
	return domain.SignatureSelfSignedOrUntrusted
}
