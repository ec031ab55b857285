package domain

import "time"

type AuditActorType string

const (
	// AuditSystemScopeID is the reserved scope identifier for
	// global/system audit events.
	AuditSystemScopeID = "__system__"
	AuditChainVersion  = "audit_chain_v1"

	AuditActorSystem      AuditActorType = "system"
	AuditActorAdminAPIKey AuditActorType = "admin_api_key"
	AuditActorService     AuditActorType = "service"
)

type AuditEventType string

const (
	AuditEventVendorRegistered  AuditEventType = "vendor_registered"
	AuditEventVendorDeactivated AuditEventType = "vendor_deactivated"
	AuditEventVerdictRecorded   AuditEventType = "verdict_recorded"
	AuditEventOverrideApplied   AuditEventType = "override_applied"
	AuditEventInvoiceRegistered AuditEventType = "invoice_registered"
)

type AuditTargetType string

const (
	AuditTargetVendor  AuditTargetType = "vendor"
	AuditTargetInvoice AuditTargetType = "invoice"
	AuditTargetVerdict AuditTargetType = "verdict"
)

type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
)

// AuditEvent is one link in a per-scope hash chain. EventHash covers
// the canonical event fields plus PrevEventHash, so tampering with any
// recorded verdict breaks the chain from that point on.
type AuditEvent struct {
	ID            string
	ScopeID       string
	Seq           int64
	EventType     AuditEventType
	Payload       any
	PayloadHash   string
	ActorType     AuditActorType
	ActorIDHash   string
	TargetType    AuditTargetType
	TargetID      string
	Result        AuditResult
	ErrorCode     string
	PrevEventHash string
	EventHash     string
	CreatedAt     time.Time
}
