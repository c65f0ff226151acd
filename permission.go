package listsync

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// PermissionGate holds the tri-state permission for the current viewer
// on the current list, resolved exactly once per list open. There are
// no further transitions for the lifetime of one open session; a new
// open re-resolves from scratch. A permission change made while a
// session is open takes effect on the next reload.
type PermissionGate struct {
	listId int64

	stateLock  sync.Mutex
	resolved   bool
	permission Permission
	isOwner    bool
}

func NewPermissionGate(listId int64) *PermissionGate {
	return &PermissionGate{
		listId: listId,
	}
}

// resolve from the permission lookup. When the lookup fails or returns
// no explicit permission, the gate falls open to edit rather than
// closing to view. This avoids blocking the owner's own session on a
// transient lookup failure, at the cost of letting a stale viewer
// attempt mutations the authority will reject. The authority remains
// the trust boundary either way.
func (self *PermissionGate) Resolve(ctx context.Context, api *ListApi) {
	result, err := api.GetListPermissionSync(ctx, self.listId)
	if err != nil {
		glog.Infof("[gate]list=%d permission lookup error = %s\n", self.listId, err)
		self.ResolveResult(&ListPermissionResult{})
		return
	}
	self.ResolveResult(result)
}

func (self *PermissionGate) ResolveResult(result *ListPermissionResult) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if self.resolved {
		return
	}
	self.resolved = true

	permission := result.Permission
	if permission == "" {
		// fail open
		permission = PermissionEdit
	}
	if result.IsOwner {
		permission = PermissionOwner
	}
	self.permission = permission
	self.isOwner = result.IsOwner
}

func (self *PermissionGate) IsResolved() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.resolved
}

func (self *PermissionGate) Permission() Permission {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if !self.resolved {
		return PermissionView
	}
	return self.permission
}

func (self *PermissionGate) IsOwner() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.resolved && self.isOwner
}

func (self *PermissionGate) CanEditItems() bool {
	return self.Permission().CanEditItems()
}
