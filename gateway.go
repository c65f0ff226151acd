package listsync

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/golang/glog"
)

// the local permission gate rejected the operation before any request
// was issued. The external authority re-enforces this server side;
// a server side rejection of an allowed-looking mutation indicates
// gate staleness and surfaces as an ordinary call error.
var ErrPermissionDenied = errors.New("permission does not allow this operation")

// MutationGateway translates user intents into authenticated calls
// against the authoritative store. State is applied only after the
// authoritative response returns (confirm then apply), never
// optimistically, so a failed call needs no rollback. On success the
// engine receives the server payload, not the locally typed draft,
// and the change is rebroadcast over the channel only if the channel
// is currently open. A missed rebroadcast is simply not retried.
type MutationGateway struct {
	listId int64

	gate    *PermissionGate
	api     *ListApi
	engine  *ItemCollection
	channel *RealtimeChannel

	titleLock   sync.Mutex
	syncedTitle string
}

func NewMutationGateway(
	listId int64,
	gate *PermissionGate,
	api *ListApi,
	engine *ItemCollection,
) *MutationGateway {
	return &MutationGateway{
		listId: listId,
		gate:   gate,
		api:    api,
		engine: engine,
	}
}

// the channel is attached after it is established, which happens only
// once the list, items, and permission have all resolved
func (self *MutationGateway) SetChannel(channel *RealtimeChannel) {
	self.channel = channel
}

// seed with the title from the open fetch. Rename is suppressed while
// the requested title equals this.
func (self *MutationGateway) SetSyncedTitle(title string) {
	self.titleLock.Lock()
	defer self.titleLock.Unlock()
	self.syncedTitle = title
}

func (self *MutationGateway) SyncedTitle() string {
	self.titleLock.Lock()
	defer self.titleLock.Unlock()
	return self.syncedTitle
}

// blank bodies are suppressed without a call. Returns the
// authoritative item on success.
func (self *MutationGateway) CreateItem(ctx context.Context, body string) (*Item, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	if !self.gate.CanEditItems() {
		return nil, ErrPermissionDenied
	}

	item, err := self.api.CreateItemSync(ctx, &CreateItemArgs{
		Body:   body,
		ListId: self.listId,
	})
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		// resolved after teardown, discard
		return nil, ctx.Err()
	}

	self.engine.ApplyCreated(item)
	self.broadcast(NewCreatedEvent(item))
	return item, nil
}

func (self *MutationGateway) UpdateItem(ctx context.Context, itemId int64, updateItem *UpdateItemArgs) (*Item, error) {
	if !self.gate.CanEditItems() {
		return nil, ErrPermissionDenied
	}

	item, err := self.api.UpdateItemSync(ctx, itemId, updateItem)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	self.engine.ApplyUpdated(item)
	self.broadcast(NewUpdatedEvent(item))
	return item, nil
}

func (self *MutationGateway) EditBody(ctx context.Context, itemId int64, body string) (*Item, error) {
	return self.UpdateItem(ctx, itemId, &UpdateItemArgs{
		Body: &body,
	})
}

func (self *MutationGateway) SetCompleted(ctx context.Context, itemId int64, completed bool) (*Item, error) {
	return self.UpdateItem(ctx, itemId, &UpdateItemArgs{
		Completed: &completed,
	})
}

func (self *MutationGateway) DeleteItem(ctx context.Context, itemId int64) error {
	if !self.gate.CanEditItems() {
		return ErrPermissionDenied
	}

	_, err := self.api.DeleteItemSync(ctx, itemId)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	self.engine.ApplyDeleted(itemId)
	self.broadcast(NewDeletedEvent(itemId))
	return nil
}

// owner only. Suppressed entirely, with no call issued, when the new
// title is blank or equals the last synchronized title.
func (self *MutationGateway) RenameTitle(ctx context.Context, title string) error {
	if strings.TrimSpace(title) == "" || title == self.SyncedTitle() {
		return nil
	}
	if !self.gate.IsOwner() {
		return ErrPermissionDenied
	}

	_, err := self.api.UpdateListTitleSync(ctx, self.listId, &UpdateListTitleArgs{
		Title: title,
	})
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	self.SetSyncedTitle(title)
	return nil
}

// redundant defense with the channel's own open check
func (self *MutationGateway) broadcast(event *BroadcastEvent) {
	if self.channel == nil || !self.channel.IsOpen() {
		glog.V(2).Infof("[gw]list=%d no channel, change not rebroadcast\n", self.listId)
		return
	}
	self.channel.Send(event)
}
