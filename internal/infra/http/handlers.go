package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"trustfuse/internal/domain"
	"trustfuse/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type registerVendorRequest struct {
	VendorName           string `json:"vendor_name"`
	PublicKeyFingerprint string `json:"public_key_fingerprint"`
}

type vendorResponse struct {
	VendorID             string `json:"vendor_id"`
	VendorName           string `json:"vendor_name"`
	PublicKeyFingerprint string `json:"public_key_fingerprint"`
	Status               string `json:"status"`
	CreatedAt            string `json:"created_at"`
}

type registerInvoiceRequest struct {
	FileHash          string `json:"file_hash"`
	IsSigned          bool   `json:"is_signed"`
	CryptoValid       *bool  `json:"crypto_valid,omitempty"`
	SignerFingerprint string `json:"signer_fingerprint,omitempty"`
}

type invoiceResponse struct {
	InvoiceID         string `json:"invoice_id"`
	FileHash          string `json:"file_hash"`
	IsSigned          bool   `json:"is_signed"`
	CryptoValid       *bool  `json:"crypto_valid,omitempty"`
	SignerFingerprint string `json:"signer_fingerprint,omitempty"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
}

type assessRequest struct {
	Signature domain.SignatureVerification `json:"signature"`
	Anomaly   domain.AnomalySignal         `json:"anomaly"`
	Amounts   domain.ExtractedAmounts      `json:"amounts"`
}

type reconciliationResponse struct {
	Status               string   `json:"status"`
	Subtotal             *float64 `json:"subtotal"`
	Tax                  *float64 `json:"tax"`
	Total                *float64 `json:"total"`
	LineItemSum          float64  `json:"line_item_sum"`
	LineItemCount        int      `json:"line_item_count"`
	SubtotalMatchesItems string   `json:"subtotal_matches_items"`
	SubtotalDelta        *float64 `json:"subtotal_delta,omitempty"`
	TotalMatchesSubtotal string   `json:"total_matches_subtotal_tax"`
	TotalDelta           *float64 `json:"total_delta,omitempty"`
}

type verdictResponse struct {
	RiskLevel         string                 `json:"risk_level"`
	ReviewRequired    bool                   `json:"review_required"`
	VendorTrustStatus string                 `json:"vendor_trust_status"`
	SignatureStatus   string                 `json:"signature_status"`
	Reconciliation    reconciliationResponse `json:"reconciliation"`
	AnomalyScore      float64                `json:"anomaly_score"`
	DistanceZ         float64                `json:"distance_z_score"`
	OverrideApplied   bool                   `json:"override_applied"`
	OverrideRule      string                 `json:"override_rule,omitempty"`
	Explanations      []string               `json:"explanations"`
	EngineVersion     string                 `json:"engine_version"`
	AssessedAt        string                 `json:"assessed_at"`
}

type routingResponse struct {
	Queue   string   `json:"queue"`
	Reasons []string `json:"reasons,omitempty"`
}

type assessResponse struct {
	InvoiceID string           `json:"invoice_id,omitempty"`
	VerdictID string           `json:"verdict_id,omitempty"`
	Verdict   verdictResponse  `json:"verdict"`
	Routing   *routingResponse `json:"routing,omitempty"`
}

type auditEventResponse struct {
	ID            string          `json:"id"`
	ScopeID       string          `json:"scope_id"`
	Seq           int64           `json:"seq"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	PayloadHash   string          `json:"payload_hash"`
	ActorType     string          `json:"actor_type"`
	ActorIDHash   string          `json:"actor_id_hash,omitempty"`
	TargetType    string          `json:"target_type"`
	TargetID      string          `json:"target_id"`
	Result        string          `json:"result"`
	ErrorCode     string          `json:"error_code,omitempty"`
	PrevEventHash string          `json:"prev_event_hash"`
	EventHash     string          `json:"event_hash"`
	CreatedAt     string          `json:"created_at"`
}

func (s *Server) handleRegisterVendor(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.vendorsUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_STORE", "vendor registry requires a database")
		return
	}
	if !s.enforceRateLimit(c, routeVendorsWrite) {
		return
	}
	var req registerVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	vendor, err := s.vendorsUC.Register(c.Request.Context(), usecase.RegisterVendorRequest{
		VendorName:           req.VendorName,
		PublicKeyFingerprint: req.PublicKeyFingerprint,
		ActorType:            domain.AuditActorAdminAPIKey,
		ActorID:              c.GetHeader("X-Admin-Key"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildVendorResponse(*vendor))
}

func (s *Server) handleListVendors(c *gin.Context) {
	if s.vendorsUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_STORE", "vendor registry requires a database")
		return
	}
	vendors, err := s.vendorsUC.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]vendorResponse, 0, len(vendors))
	for _, vendor := range vendors {
		out = append(out, buildVendorResponse(vendor))
	}
	c.JSON(http.StatusOK, gin.H{"vendors": out})
}

func (s *Server) handleDeactivateVendor(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.vendorsUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_STORE", "vendor registry requires a database")
		return
	}
	vendorID := c.Param("vendor_id")
	err := s.vendorsUC.Deactivate(c.Request.Context(), vendorID, domain.AuditActorAdminAPIKey, c.GetHeader("X-Admin-Key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendor_id": vendorID, "status": string(domain.VendorInactive)})
}

func (s *Server) handleRegisterInvoice(c *gin.Context) {
	if s.invoicesUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_STORE", "invoice registry requires a database")
		return
	}
	if !s.enforceRateLimit(c, routeInvoicesWrite) {
		return
	}
	var req registerInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	invoice, err := s.invoicesUC.Register(c.Request.Context(), usecase.RegisterInvoiceRequest{
		FileHash:          req.FileHash,
		IsSigned:          req.IsSigned,
		CryptoValid:       req.CryptoValid,
		SignerFingerprint: req.SignerFingerprint,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildInvoiceResponse(*invoice))
}

func (s *Server) handleListInvoices(c *gin.Context) {
	if s.invoicesUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_STORE", "invoice registry requires a database")
		return
	}
	invoices, err := s.invoicesUC.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invoices))
	for _, invoice := range invoices {
		out = append(out, buildInvoiceResponse(invoice))
	}
	c.JSON(http.StatusOK, gin.H{"invoices": out})
}

func (s *Server) handleAssessInvoice(c *gin.Context) {
	if s.assessUC == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_STORE", "assessment requires a database")
		return
	}
	if !s.enforceRateLimit(c, routeAssess) {
		return
	}
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	started := time.Now()
	receipt, err := s.assessUC.Execute(c.Request.Context(), usecase.AssessInvoiceRequest{
		InvoiceID: c.Param("invoice_id"),
		Signature: req.Signature,
		Anomaly:   req.Anomaly,
		Amounts:   req.Amounts,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignal) {
			s.metrics.ObserveRejection("invalid_signal")
		}
		writeError(c, err)
		return
	}
	s.metrics.ObserveVerdict(receipt.Verdict, receipt.Routing, time.Since(started))
	c.JSON(http.StatusOK, buildAssessResponse(receipt))
}

// handleAssess runs the fusion engine without touching the invoice
// registry: nothing is persisted and no invoice row is required.
func (s *Server) handleAssess(c *gin.Context) {
	if s.fuse == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_ENGINE", "fusion engine not configured")
		return
	}
	if !s.enforceRateLimit(c, routeAssess) {
		return
	}
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	started := time.Now()
	verdict, err := s.fuse.Execute(c.Request.Context(), usecase.FuseRiskRequest{
		Signature: req.Signature,
		Anomaly:   req.Anomaly,
		Amounts:   req.Amounts,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignal) {
			s.metrics.ObserveRejection("invalid_signal")
		}
		writeError(c, err)
		return
	}
	out := assessResponse{Verdict: buildVerdictResponse(*verdict)}
	if s.routing != nil {
		routing, err := s.routing.Route(c.Request.Context(), *verdict)
		if err != nil {
			writeError(c, err)
			return
		}
		out.Routing = buildRoutingResponse(&routing)
	}
	var decision *usecase.RoutingDecision
	if out.Routing != nil {
		decision = &usecase.RoutingDecision{Queue: out.Routing.Queue, Reasons: out.Routing.Reasons}
	}
	s.metrics.ObserveVerdict(*verdict, decision, time.Since(started))
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListVerdicts(c *gin.Context) {
	if s.verdictRepo == nil || s.invoiceRepo == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_STORE", "verdict history requires a database")
		return
	}
	invoiceID := c.Param("invoice_id")
	if _, err := s.invoiceRepo.GetByID(c.Request.Context(), invoiceID); err != nil {
		writeError(c, err)
		return
	}
	verdicts, err := s.verdictRepo.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]verdictResponse, 0, len(verdicts))
	for _, verdict := range verdicts {
		out = append(out, buildVerdictResponse(verdict))
	}
	c.JSON(http.StatusOK, gin.H{"invoice_id": invoiceID, "verdicts": out})
}

func (s *Server) handleAuditEvents(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.auditRepo == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_STORE", "audit trail not configured")
		return
	}
	scopeID := c.DefaultQuery("scope_id", domain.AuditSystemScopeID)
	events, err := s.auditRepo.ListByScope(c.Request.Context(), scopeID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]auditEventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, buildAuditEventResponse(event))
	}
	c.JSON(http.StatusOK, gin.H{"scope_id": scopeID, "events": out})
}

func (s *Server) handleVerifyAuditChain(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.auditRepo == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "NO_STORE", "audit trail not configured")
		return
	}
	scopeID := c.DefaultQuery("scope_id", domain.AuditSystemScopeID)
	if err := usecase.VerifyAuditChain(c.Request.Context(), s.auditRepo, scopeID); err != nil {
		writeErrorCode(c, http.StatusConflict, "CHAIN_BROKEN", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"scope_id": scopeID, "status": "ok"})
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := c.GetHeader("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

func buildVendorResponse(vendor domain.VendorRecord) vendorResponse {
	return vendorResponse{
		VendorID:             vendor.VendorID,
		VendorName:           vendor.VendorName,
		PublicKeyFingerprint: vendor.PublicKeyFingerprint,
		Status:               string(vendor.Status),
		CreatedAt:            vendor.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func buildInvoiceResponse(invoice domain.Invoice) invoiceResponse {
	return invoiceResponse{
		InvoiceID:         invoice.InvoiceID,
		FileHash:          invoice.FileHash,
		IsSigned:          invoice.IsSigned,
		CryptoValid:       invoice.CryptoValid,
		SignerFingerprint: invoice.SignerFingerprint,
		Status:            string(invoice.Status),
		CreatedAt:         invoice.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func buildAssessResponse(receipt *usecase.AssessReceipt) assessResponse {
	if receipt == nil {
		return assessResponse{}
	}
	return assessResponse{
		InvoiceID: receipt.InvoiceID,
		VerdictID: receipt.VerdictID,
		Verdict:   buildVerdictResponse(receipt.Verdict),
		Routing:   buildRoutingResponse(receipt.Routing),
	}
}

// buildVerdictResponse is the single place where numbers are rounded
// for presentation; the persisted verdict keeps full precision.
func buildVerdictResponse(verdict domain.RiskVerdict) verdictResponse {
	return verdictResponse{
		RiskLevel:         string(verdict.RiskLevel),
		ReviewRequired:    verdict.ReviewRequired,
		VendorTrustStatus: string(verdict.VendorTrustStatus),
		SignatureStatus:   string(verdict.SignatureStatus),
		Reconciliation:    buildReconciliationResponse(verdict.Reconciliation),
		AnomalyScore:      roundTo(verdict.AnomalyScore, 3),
		DistanceZ:         roundTo(verdict.DistanceZ, 3),
		OverrideApplied:   verdict.OverrideApplied,
		OverrideRule:      verdict.OverrideRule,
		Explanations:      verdict.Explanations,
		EngineVersion:     verdict.EngineVersion,
		AssessedAt:        verdict.AssessedAt.UTC().Format(time.RFC3339),
	}
}

func buildReconciliationResponse(rec domain.ReconciliationSignal) reconciliationResponse {
	return reconciliationResponse{
		Status:               string(rec.Status),
		Subtotal:             roundOpt(rec.Subtotal, 2),
		Tax:                  roundOpt(rec.Tax, 2),
		Total:                roundOpt(rec.Total, 2),
		LineItemSum:          roundTo(rec.LineItemSum, 2),
		LineItemCount:        rec.LineItemCount,
		SubtotalMatchesItems: string(rec.SubtotalMatchesItems),
		SubtotalDelta:        roundOpt(rec.SubtotalDelta, 2),
		TotalMatchesSubtotal: string(rec.TotalMatchesSubtotal),
		TotalDelta:           roundOpt(rec.TotalDelta, 2),
	}
}

func buildRoutingResponse(routing *usecase.RoutingDecision) *routingResponse {
	if routing == nil {
		return nil
	}
	return &routingResponse{
		Queue:   routing.Queue,
		Reasons: routing.Reasons,
	}
}

func buildAuditEventResponse(event domain.AuditEvent) auditEventResponse {
	out := auditEventResponse{
		ID:            event.ID,
		ScopeID:       event.ScopeID,
		Seq:           event.Seq,
		EventType:     string(event.EventType),
		PayloadHash:   event.PayloadHash,
		ActorType:     string(event.ActorType),
		ActorIDHash:   event.ActorIDHash,
		TargetType:    string(event.TargetType),
		TargetID:      event.TargetID,
		Result:        string(event.Result),
		ErrorCode:     event.ErrorCode,
		PrevEventHash: event.PrevEventHash,
		EventHash:     event.EventHash,
		CreatedAt:     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	switch payload := event.Payload.(type) {
	case []byte:
		out.Payload = payload
	case json.RawMessage:
		out.Payload = payload
	default:
		if encoded, err := json.Marshal(payload); err == nil {
			out.Payload = encoded
		}
	}
	return out
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(value*scale) / scale
}

func roundOpt(value *float64, places int) *float64 {
	if value == nil {
		return nil
	}
	rounded := roundTo(*value, places)
	return &rounded
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidSignal):
		status, code = http.StatusBadRequest, "INVALID_SIGNAL"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrVendorExists):
		status, code = http.StatusConflict, "VENDOR_EXISTS"
	case errors.Is(err, domain.ErrDuplicateInvoice):
		status, code = http.StatusConflict, "DUPLICATE_INVOICE"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "RATE_LIMITED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
