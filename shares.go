package listsync

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// rejected client side before any request is issued
var ErrSelfShare = errors.New("cannot share a list with yourself")

// shares carry only view or edit
var ErrInvalidSharePermission = errors.New("share permission must be view or edit")

// ShareDirectory manages the grant records for one list, independent
// of the item collection and the realtime channel. Share changes do
// not flow over the broadcast stream; a second owner-side viewer sees
// another admin's changes only after an explicit refresh, driven by
// the refresh monitor.
type ShareDirectory struct {
	listId int64

	gate *PermissionGate
	api  *ListApi

	// the acting user's own identity, for the self share guard
	selfEmail string

	stateLock sync.Mutex
	shares    []*Share

	refreshMonitor *Monitor
}

func NewShareDirectory(listId int64, gate *PermissionGate, api *ListApi, selfEmail string) *ShareDirectory {
	return &ShareDirectory{
		listId:         listId,
		gate:           gate,
		api:            api,
		selfEmail:      selfEmail,
		shares:         []*Share{},
		refreshMonitor: NewMonitor(),
	}
}

func (self *ShareDirectory) List(ctx context.Context) ([]*Share, error) {
	shares, err := self.api.GetSharesSync(ctx, self.listId)
	if err != nil {
		glog.Infof("[shares]list=%d list error = %s\n", self.listId, err)
		return nil, err
	}

	self.stateLock.Lock()
	self.shares = shares
	self.stateLock.Unlock()

	return self.Shares(), nil
}

// snapshot of the last successful list
func (self *ShareDirectory) Shares() []*Share {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	shares := make([]*Share, 0, len(self.shares))
	for _, share := range self.shares {
		shareCopy := *share
		shares = append(shares, &shareCopy)
	}
	return shares
}

func (self *ShareDirectory) Create(ctx context.Context, email string, permission Permission) (*Share, error) {
	if !self.gate.IsOwner() {
		return nil, ErrPermissionDenied
	}
	if !permission.Shareable() {
		return nil, ErrInvalidSharePermission
	}
	if strings.EqualFold(strings.TrimSpace(email), strings.TrimSpace(self.selfEmail)) {
		return nil, ErrSelfShare
	}

	share, err := self.api.CreateShareSync(ctx, &CreateShareArgs{
		ListId:          self.listId,
		SharedWithEmail: email,
		Permission:      permission,
	})
	if err != nil {
		return nil, err
	}

	// the create succeeded; a list failure here leaves the stale
	// snapshot until the next refresh
	self.Refresh()
	self.List(ctx)
	return share, nil
}

func (self *ShareDirectory) SetPermission(ctx context.Context, shareId int64, permission Permission) error {
	if !self.gate.IsOwner() {
		return ErrPermissionDenied
	}
	if !permission.Shareable() {
		return ErrInvalidSharePermission
	}

	_, err := self.api.UpdateSharePermissionSync(ctx, shareId, &UpdateShareArgs{
		Permission: permission,
	})
	if err != nil {
		return err
	}

	self.Refresh()
	self.List(ctx)
	return nil
}

// the destructive call is issued only after `confirm` returns true
func (self *ShareDirectory) Remove(ctx context.Context, shareId int64, confirm func() bool) error {
	if !self.gate.IsOwner() {
		return ErrPermissionDenied
	}
	if confirm == nil || !confirm() {
		return nil
	}

	_, err := self.api.DeleteShareSync(ctx, shareId)
	if err != nil {
		return err
	}

	self.Refresh()
	self.List(ctx)
	return nil
}

// other components bump this to force watchers to re-list
func (self *ShareDirectory) Refresh() uint64 {
	return self.refreshMonitor.NotifyAll()
}

func (self *ShareDirectory) RefreshMonitor() *Monitor {
	return self.refreshMonitor
}
