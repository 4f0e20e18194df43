package impl

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"auth/internal/domain"
	"auth/internal/netutil"
	"auth/internal/observability/metrics"
	"auth/internal/store"

	"github.com/google/uuid"
)

// AuditRecorderImpl appends security events to the audit trail. It is a
// best-effort sink: any failure is logged and absorbed so the primary
// operation's outcome is never tied to audit persistence.
type AuditRecorderImpl struct {
	store *store.Store
}

func NewAuditRecorder(st *store.Store) *AuditRecorderImpl {
	return &AuditRecorderImpl{store: st}
}

func (a *AuditRecorderImpl) Record(ctx context.Context, userID *domain.UserID, event domain.AuditEventType, ip, ua string, details map[string]any) {
	var payload []byte
	if len(details) > 0 {
		var err error
		if payload, err = json.Marshal(details); err != nil {
			slog.Warn("audit details not serializable", "event", event, "error", err)
			payload = nil
		}
	}
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		ip = normalized
	}

	ev := &domain.AuditEvent{
		ID:        uuid.New(),
		UserID:    userID,
		EventType: event,
		IP:        ip,
		UserAgent: netutil.TruncateUserAgent(ua),
		CreatedAt: time.Now().UTC(),
		Details:   payload,
	}
	if err := a.store.Audits().Append(ctx, ev); err != nil {
		metrics.AuditWriteFailuresTotal.WithLabelValues(string(event)).Inc()
		slog.Warn("audit append failed", "event", event, "user_id", userID, "error", err)
	}
}
