package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("user role forced to public", func(t *testing.T) {
		u := UserContext{Role: RoleUser, AccessScope: AccessScopeBoth}.Normalize()
		assert.Equal(t, AccessScopePublic, u.AccessScope)
	})

	t.Run("empty scope defaults to public", func(t *testing.T) {
		u := UserContext{Role: RoleAdmin}.Normalize()
		assert.Equal(t, AccessScopePublic, u.AccessScope)
	})

	t.Run("admin scope preserved", func(t *testing.T) {
		u := UserContext{Role: RoleAdmin, AccessScope: AccessScopeBoth}.Normalize()
		assert.Equal(t, AccessScopeBoth, u.AccessScope)
	})

	t.Run("temperature defaults", func(t *testing.T) {
		u := UserContext{Role: RoleAdmin}.Normalize()
		assert.InDelta(t, 0.1, u.Temperature, 1e-9)

		u = UserContext{Role: RoleAdmin, Temperature: 0.7}.Normalize()
		assert.InDelta(t, 0.7, u.Temperature, 1e-9)
	})
}

func TestFillDatetime(t *testing.T) {
	now := time.Date(2026, 8, 26, 3, 0, 0, 0, time.UTC)

	t.Run("uses tenant timezone", func(t *testing.T) {
		r := &RunRequest{TenantTimezone: "Asia/Tokyo"}
		r.FillDatetime(now)
		assert.Equal(t, "2026-08-26T12:00:00+09:00", r.TenantCurrentDatetime)
	})

	t.Run("unknown timezone falls back to utc", func(t *testing.T) {
		r := &RunRequest{TenantTimezone: "Not/AZone"}
		r.FillDatetime(now)
		assert.Equal(t, "2026-08-26T03:00:00Z", r.TenantCurrentDatetime)
	})

	t.Run("caller value preserved", func(t *testing.T) {
		r := &RunRequest{TenantCurrentDatetime: "2026-01-01T00:00:00Z"}
		r.FillDatetime(now)
		assert.Equal(t, "2026-01-01T00:00:00Z", r.TenantCurrentDatetime)
	})
}
