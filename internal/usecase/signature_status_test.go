package usecase

import (
	"testing"

	"trustfuse/internal/domain"
)

func boolPtr(v bool) *bool { return &v }

func TestDeriveSignatureStatus(t *testing.T) {
	cases := []struct {
		name string
		sig  domain.SignatureVerification
		want domain.SignatureStatus
	}{
		{
			name: "absent signature",
			sig:  domain.SignatureVerification{Present: false},
			want: domain.SignatureUnsigned,
		},
		{
			name: "present but invalid",
			sig:  domain.SignatureVerification{Present: true, CryptoValid: boolPtr(false)},
			want: domain.SignatureInvalid,
		},
		{
			name: "valid and chain trusted",
			sig:  domain.SignatureVerification{Present: true, CryptoValid: boolPtr(true), ChainTrusted: boolPtr(true)},
			want: domain.SignatureTrusted,
		},
		{
			name: "valid but untrusted chain",
			sig:  domain.SignatureVerification{Present: true, CryptoValid: boolPtr(true), ChainTrusted: boolPtr(false)},
			want: domain.SignatureSelfSignedOrUntrusted,
		},
		{
			name: "present with undetermined validity",
			sig:  domain.SignatureVerification{Present: true},
			want: domain.SignatureUnknown,
		},
		{
			name: "valid with undetermined chain",
			sig:  domain.SignatureVerification{Present: true, CryptoValid: boolPtr(true)},
			want: domain.SignatureUnknown,
		},
		{
			name: "invalid with trusted chain still invalid",
			sig:  domain.SignatureVerification{Present: true, CryptoValid: boolPtr(false), ChainTrusted: boolPtr(true)},
			want: domain.SignatureInvalid,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveSignatureStatus(tc.sig)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

// Every combination of the tri-state inputs must map to a declared
// status, and a malformed combination must never come out trusted.
func TestDeriveSignatureStatus_Total(t *testing.T) {
	triStates := []*bool{nil, boolPtr(false), boolPtr(true)}
	valid := map[domain.SignatureStatus]bool{
		domain.SignatureUnsigned:              true,
		domain.SignatureInvalid:               true,
		domain.SignatureTrusted:               true,
		domain.SignatureSelfSignedOrUntrusted: true,
		domain.SignatureUnknown:               true,
	}
	for _, present := range []bool{false, true} {
		for _, cryptoValid := range triStates {
			for _, chainTrusted := range triStates {
				sig := domain.SignatureVerification{
					Present:      present,
					CryptoValid:  cryptoValid,
					ChainTrusted: chainTrusted,
				}
				got := DeriveSignatureStatus(sig)
				if !valid[got] {
					t.Fatalf("status %q outside declared domain for %+v", got, sig)
				}
				if got == domain.SignatureTrusted {
					if cryptoValid == nil || !*cryptoValid || chainTrusted == nil || !*chainTrusted {
						t.Fatalf("trusted status from incomplete signal %+v", sig)
					}
				}
			}
		}
	}
}
