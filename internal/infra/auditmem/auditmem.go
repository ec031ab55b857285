package auditmem

import (
	"context"
	"sync"
	"time"

	"trustfuse/internal/domain"
	"trustfuse/internal/usecase"

	"github.com/google/uuid"
)

// Store is an in-memory AuditEventRepository with the same chain
// semantics as the postgres repository: per-scope sequence numbers and
// a running hash over canonical event fields. Used by the CLI and by
// tests.
type Store struct {
	mu     sync.Mutex
	events map[string][]domain.AuditEvent
}

func New() *Store {
	return &Store{events: make(map[string][]domain.AuditEvent)}
}

func (s *Store) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ScopeID == "" {
		event.ScopeID = domain.AuditSystemScopeID
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.CreatedAt = event.CreatedAt.UTC().Truncate(time.Microsecond)

	payloadJSON, payloadHash, err := usecase.HashPayload(event.Payload)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	event.Payload = payloadJSON
	event.PayloadHash = payloadHash

	chain := s.events[event.ScopeID]
	event.Seq = int64(len(chain)) + 1
	event.PrevEventHash = usecase.ZeroAuditHash()
	if len(chain) > 0 {
		event.PrevEventHash = chain[len(chain)-1].EventHash
	}
	eventHash, err := usecase.ComputeAuditEventHash(event)
	if err != nil {
		return domain.AuditEvent{}, err
	}
	event.EventHash = eventHash

	s.events[event.ScopeID] = append(chain, event)
	return event, nil
}

func (s *Store) ListByScope(ctx context.Context, scopeID string) ([]domain.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if scopeID == "" {
		scopeID = domain.AuditSystemScopeID
	}
	chain := s.events[scopeID]
	out := make([]domain.AuditEvent, len(chain))
	copy(out, chain)
	return out, nil
}
