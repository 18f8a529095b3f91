package models

import "time"

// Audit actions recorded by the API.
const (
	AuditActionLogin        = "auth.login"
	AuditActionRefresh      = "auth.refresh"
	AuditActionLogout       = "auth.logout"
	AuditActionCreate       = "resource.create"
	AuditActionUpdate       = "resource.update"
	AuditActionDelete       = "resource.delete"
	AuditActionTokenCleanup = "auth.token_cleanup"
)

// AuditLog captures who did what against which resource.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  string    `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditLogEntry is an audit row joined with the acting user's name. The name
// is nil for anonymous actions and deleted accounts.
type AuditLogEntry struct {
	AuditLog
	UserName *string `db:"user_name" json:"user_name,omitempty"`
}

// AuditLogFilter narrows audit trail listings.
type AuditLogFilter struct {
	UserID   string
	Action   string
	Resource string
	Page     int
	PageSize int
}
