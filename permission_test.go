package listsync

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestPermissionGateResolve(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"permission": "view", "is_owner": false}`)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)

	gate := NewPermissionGate(5)
	assert.Equal(t, gate.IsResolved(), false)
	// unresolved reads as view
	assert.Equal(t, PermissionView, gate.Permission())

	gate.Resolve(ctx, api)
	assert.Equal(t, gate.IsResolved(), true)
	assert.Equal(t, PermissionView, gate.Permission())
	assert.Equal(t, gate.IsOwner(), false)
	assert.Equal(t, gate.CanEditItems(), false)
}

func TestPermissionGateOwner(t *testing.T) {
	gate := NewPermissionGate(5)
	gate.ResolveResult(&ListPermissionResult{
		Permission: PermissionEdit,
		IsOwner:    true,
	})

	assert.Equal(t, PermissionOwner, gate.Permission())
	assert.Equal(t, gate.IsOwner(), true)
	assert.Equal(t, gate.CanEditItems(), true)
}

// the gate deliberately fails open to edit when the lookup fails, so
// a transient lookup failure does not block the owner's own session.
// This test exists to make the policy explicit and flag regressions
// toward the fail-closed alternative.
func TestPermissionGateFailOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)

	gate := NewPermissionGate(5)
	gate.Resolve(ctx, api)

	assert.Equal(t, gate.IsResolved(), true)
	assert.Equal(t, PermissionEdit, gate.Permission())
	assert.Equal(t, gate.IsOwner(), false)
	assert.Equal(t, gate.CanEditItems(), true)
}

func TestPermissionGateEmptyResultFailsOpen(t *testing.T) {
	gate := NewPermissionGate(5)
	// lookup succeeded but returned no explicit permission
	gate.ResolveResult(&ListPermissionResult{})

	assert.Equal(t, PermissionEdit, gate.Permission())
	assert.Equal(t, gate.IsOwner(), false)
}

func TestPermissionGateResolvesOnce(t *testing.T) {
	gate := NewPermissionGate(5)
	gate.ResolveResult(&ListPermissionResult{
		Permission: PermissionView,
	})
	// no further transitions for the session lifetime
	gate.ResolveResult(&ListPermissionResult{
		Permission: PermissionEdit,
		IsOwner:    true,
	})

	assert.Equal(t, PermissionView, gate.Permission())
	assert.Equal(t, gate.IsOwner(), false)
}
