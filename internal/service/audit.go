package service

import (
	"context"

	"user_management/internal/model"

	"github.com/sirupsen/logrus"
)

const (
	ActionUserCreated    = "user.created"
	ActionUserUpdated    = "user.updated"
	ActionUserDeleted    = "user.deleted"
	ActionUserRegistered = "auth.registered"
	ActionLogin          = "auth.login"
	ActionLogout         = "auth.logout"
	ActionTokenRefreshed = "auth.token_refreshed"
)

// ChangeRecord describes one mutation. Before and After hold only the
// changed attributes and never the password.
type ChangeRecord struct {
	Action        string
	ActorID       int64
	TargetID      int64
	UpdatedFields []string
	Before        map[string]any
	After         map[string]any
}

// AuditHook receives every mutation made by the auth and user services.
type AuditHook interface {
	Record(ctx context.Context, rec ChangeRecord)
}

type actorKey struct{}

// WithActor returns a context carrying the id of the authenticated caller.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext returns the caller id stored by WithActor, or 0.
func ActorFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(actorKey{}).(int64)
	return id
}

type logAuditHook struct {
	logger logrus.FieldLogger
}

// NewLogAuditHook returns an AuditHook that writes each record as a log entry.
func NewLogAuditHook(logger logrus.FieldLogger) AuditHook {
	return &logAuditHook{logger: logger}
}

func (h *logAuditHook) Record(ctx context.Context, rec ChangeRecord) {
	fields := logrus.Fields{
		"action":    rec.Action,
		"target_id": rec.TargetID,
	}
	if rec.ActorID != 0 {
		fields["actor_id"] = rec.ActorID
	}
	if len(rec.UpdatedFields) > 0 {
		fields["updated_fields"] = rec.UpdatedFields
	}
	if rec.Before != nil {
		fields["original_data"] = rec.Before
	}
	if rec.After != nil {
		fields["new_data"] = rec.After
	}

	entry := h.logger.WithFields(fields)
	if rec.Action == ActionUserDeleted {
		entry.Warn("audit")
		return
	}
	entry.Info("audit")
}

// snapshot returns the auditable attributes of u.
func snapshot(u *model.User) map[string]any {
	return map[string]any{
		"first_name":    u.FirstName,
		"last_name":     u.LastName,
		"role":          int(u.Role),
		"email":         u.Email,
		"latitude":      u.Latitude,
		"longitude":     u.Longitude,
		"date_of_birth": u.DateOfBirth.Format(model.DateLayout),
		"timezone":      u.Timezone,
	}
}

// diff returns the names, old and new values of the attributes that differ.
func diff(before, after map[string]any) ([]string, map[string]any, map[string]any) {
	var names []string
	oldVals := map[string]any{}
	newVals := map[string]any{}
	for _, k := range auditFieldOrder {
		if before[k] != after[k] {
			names = append(names, k)
			oldVals[k] = before[k]
			newVals[k] = after[k]
		}
	}
	return names, oldVals, newVals
}

var auditFieldOrder = []string{"first_name", "last_name", "role", "email", "latitude", "longitude", "date_of_birth", "timezone"}
