// Package permissions stores delegation grants: an account owner may let
// another account bid and/or withdraw on its behalf.
package permissions

import (
	"github.com/cloudx-io/auctionhouse/core"
)

type grantKey struct {
	owner    core.Address
	delegate core.Address
}

// Registry holds (owner, delegate) -> Permission. Only the owner sets its grants.
type Registry struct {
	grants map[grantKey]core.Permission
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{grants: make(map[grantKey]core.Permission)}
}

// SetApproval records the grant owner gives delegate. PermissionNone revokes it.
func (r *Registry) SetApproval(owner, delegate core.Address, status core.Permission) {
	k := grantKey{owner, delegate}
	if status == core.PermissionNone {
		delete(r.grants, k)
		return
	}
	r.grants[k] = status
}

// Status returns the stored grant.
func (r *Registry) Status(owner, delegate core.Address) core.Permission {
	return r.grants[grantKey{owner, delegate}]
}

// Check reports whether caller may act for owner with the required permission.
// Self-calls are always allowed; otherwise the stored grant must equal required or be PermissionBoth.
func (r *Registry) Check(owner, caller core.Address, required core.Permission) bool {
	if owner == caller {
		return true
	}
	status := r.Status(owner, caller)
	return status == required || status == core.PermissionBoth
}

// Authorize is Check with the trusted-caller bypass applied first.
func (r *Registry) Authorize(owner, caller core.Address, required core.Permission, trusted TrustedCaller) bool {
	if trusted.Vouches(caller) {
		return true
	}
	return r.Check(owner, caller, required)
}

// TrustedCaller is the capability that lets a router act for any account
// without a stored grant. The zero value trusts nobody.
type TrustedCaller struct {
	addr core.Address
}

// Trust returns a capability for addr. An empty addr trusts nobody.
func Trust(addr core.Address) TrustedCaller {
	return TrustedCaller{addr: addr}
}

// Address returns the trusted account, or "" when none is configured.
func (t TrustedCaller) Address() core.Address {
	return t.addr
}

// Vouches reports whether caller is the trusted account.
func (t TrustedCaller) Vouches(caller core.Address) bool {
	return !t.addr.IsZero() && caller == t.addr
}
