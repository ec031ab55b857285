package db

import "time"

type VendorModel struct {
	ID                   string    `gorm:"type:uuid;primaryKey"`
	VendorName           string    `gorm:"not null"`
	PublicKeyFingerprint string    `gorm:"uniqueIndex;not null"`
	Status               string    `gorm:"not null"`
	CreatedAt            time.Time `gorm:"not null"`
}

func (VendorModel) TableName() string { return "vendors" }

type InvoiceModel struct {
	ID                string `gorm:"type:uuid;primaryKey"`
	FileHash          string `gorm:"uniqueIndex;not null"`
	IsSigned          bool   `gorm:"not null"`
	CryptoValid       *bool
	SignerFingerprint *string   `gorm:"index"`
	Status            string    `gorm:"not null"`
	CreatedAt         time.Time `gorm:"not null"`
}

func (InvoiceModel) TableName() string { return "invoices" }

type VerdictModel struct {
	ID              string    `gorm:"type:uuid;primaryKey"`
	InvoiceID       string    `gorm:"type:uuid;index;not null"`
	RiskLevel       string    `gorm:"index;not null"`
	ReviewRequired  bool      `gorm:"not null"`
	OverrideApplied bool      `gorm:"not null"`
	EngineVersion   string    `gorm:"not null"`
	VerdictJSON     []byte    `gorm:"type:jsonb;not null"`
	AssessedAt      time.Time `gorm:"index;not null"`
}

func (VerdictModel) TableName() string { return "verdicts" }

type AuditEventModel struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	ScopeID       string    `gorm:"index:idx_audit_scope_seq,unique;not null"`
	Seq           int64     `gorm:"index:idx_audit_scope_seq,unique;not null"`
	EventType     string    `gorm:"index;not null"`
	PayloadJSON   []byte    `gorm:"type:jsonb;not null"`
	PayloadHash   string    `gorm:"not null"`
	ActorType     string    `gorm:"not null"`
	ActorIDHash   *string
	TargetType    string    `gorm:"not null"`
	TargetID      *string   `gorm:"index"`
	Result        string    `gorm:"not null"`
	ErrorCode     *string
	PrevEventHash string    `gorm:"not null"`
	EventHash     string    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (AuditEventModel) TableName() string { return "audit_events" }
