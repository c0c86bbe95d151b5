// Package models defines the data model shared across the workflow engine:
// user context, agent descriptors, execution plans, agent responses, conflict
// resolutions, workflow state, and the progress/final event types.
package models

import "time"

// Role is the caller's role within a tenant.
type Role string

const (
	RoleMaintainer  Role = "MAINTAINER"
	RoleAdmin       Role = "ADMIN"
	RoleDeptAdmin   Role = "DEPT_ADMIN"
	RoleDeptManager Role = "DEPT_MANAGER"
	RoleUser        Role = "USER"
)

// AccessScope is the document/tool visibility mask applied for a user.
type AccessScope string

const (
	AccessScopePublic  AccessScope = "public"
	AccessScopePrivate AccessScope = "private"
	AccessScopeBoth    AccessScope = "both"
)

// UserContext identifies the caller for a single run. Created at request
// ingress and immutable for the lifetime of the run.
type UserContext struct {
	UserID       string      `json:"user_id"`
	TenantID     string      `json:"tenant_id"`
	DepartmentID string      `json:"department_id,omitempty"`
	Role         Role        `json:"role"`
	AccessScope  AccessScope `json:"access_scope"`
	Timezone     string      `json:"timezone"`
	Locale       string      `json:"locale"`
	ProviderName string      `json:"provider_name"`
	Temperature  float64     `json:"temperature"`
}

// Normalize applies the role-based access rules: the USER role is always
// forced to public scope, and an unset scope defaults to public.
func (u UserContext) Normalize() UserContext {
	if u.Role == RoleUser || u.AccessScope == "" {
		u.AccessScope = AccessScopePublic
	}
	if u.Temperature <= 0 {
		u.Temperature = 0.1
	}
	return u
}

// ChatMessage is one turn of the conversation history.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Message roles.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// RunRequest is the engine entry point input — one call per user turn.
type RunRequest struct {
	Query                 string        `json:"query"`
	Messages              []ChatMessage `json:"messages"`
	UserContext           UserContext   `json:"user_context"`
	TenantTimezone        string        `json:"tenant_timezone"`
	TenantCurrentDatetime string        `json:"tenant_current_datetime,omitempty"`
}

// FillDatetime populates TenantCurrentDatetime from the tenant timezone when
// the caller left it empty. Unknown timezones fall back to UTC.
func (r *RunRequest) FillDatetime(now time.Time) {
	if r.TenantCurrentDatetime != "" {
		return
	}
	loc, err := time.LoadLocation(r.TenantTimezone)
	if err != nil {
		loc = time.UTC
	}
	r.TenantCurrentDatetime = now.In(loc).Format(time.RFC3339)
}
