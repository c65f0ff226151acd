package listsync

import (
	"slices"
	"sync"

	"github.com/golang/glog"
)

// ItemCollection is the single authoritative in-memory collection of
// items for one open list. It is fed from two independent sources:
// direct response results from the mutation gateway, and broadcast
// events from the realtime channel. The channel offers no ordering or
// delivery guarantee relative to the direct responses, so every apply
// is a membership checked upsert/remove rather than an unconditional
// write.
//
// Entries keep append order for creates and stable order for updates.
// Removal is complete (no tombstones).
type ItemCollection struct {
	listId int64

	stateLock sync.Mutex
	// append order
	orderedItemIds []int64
	// item_id -> item
	items map[int64]*Item

	changeCallbacks *CallbackList[ChangeFunction]
}

type ChangeFunction func()

func NewItemCollection(listId int64) *ItemCollection {
	return &ItemCollection{
		listId:          listId,
		orderedItemIds:  []int64{},
		items:           map[int64]*Item{},
		changeCallbacks: NewCallbackList[ChangeFunction](),
	}
}

// seed from the fetch at open time, preserving server order.
// duplicate ids in the input keep the first occurrence.
func (self *ItemCollection) Reset(items []*Item) {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		self.orderedItemIds = []int64{}
		self.items = map[int64]*Item{}
		for _, item := range items {
			if _, ok := self.items[item.ItemId]; ok {
				continue
			}
			itemCopy := *item
			self.orderedItemIds = append(self.orderedItemIds, item.ItemId)
			self.items[item.ItemId] = &itemCopy
		}
	}()
	self.change()
}

// append unless the id is already present. Duplicate suppression
// guards against a client receiving its own creation echoed back over
// the channel after it was applied from the direct response.
func (self *ItemCollection) ApplyCreated(item *Item) bool {
	applied := func() bool {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if _, ok := self.items[item.ItemId]; ok {
			glog.V(2).Infof("[sync]list=%d created item=%d duplicate\n", self.listId, item.ItemId)
			return false
		}
		itemCopy := *item
		self.orderedItemIds = append(self.orderedItemIds, item.ItemId)
		self.items[item.ItemId] = &itemCopy
		return true
	}()
	if applied {
		self.change()
	}
	return applied
}

// replace in place when present. An update for an absent id is a late
// or duplicate event and must not append, otherwise a deleted item
// would reappear.
func (self *ItemCollection) ApplyUpdated(item *Item) bool {
	applied := func() bool {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if _, ok := self.items[item.ItemId]; !ok {
			glog.V(2).Infof("[sync]list=%d updated item=%d absent, ignored\n", self.listId, item.ItemId)
			return false
		}
		itemCopy := *item
		self.items[item.ItemId] = &itemCopy
		return true
	}()
	if applied {
		self.change()
	}
	return applied
}

func (self *ItemCollection) ApplyDeleted(itemId int64) bool {
	applied := func() bool {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if _, ok := self.items[itemId]; !ok {
			glog.V(2).Infof("[sync]list=%d deleted item=%d absent, ignored\n", self.listId, itemId)
			return false
		}
		i := slices.Index(self.orderedItemIds, itemId)
		self.orderedItemIds = slices.Delete(self.orderedItemIds, i, i+1)
		delete(self.items, itemId)
		return true
	}()
	if applied {
		self.change()
	}
	return applied
}

func (self *ItemCollection) Contains(itemId int64) bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	_, ok := self.items[itemId]
	return ok
}

func (self *ItemCollection) Get(itemId int64) *Item {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if item, ok := self.items[itemId]; ok {
		itemCopy := *item
		return &itemCopy
	}
	return nil
}

func (self *ItemCollection) Len() int {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return len(self.orderedItemIds)
}

// snapshot copy in collection order
func (self *ItemCollection) Items() []*Item {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	items := make([]*Item, 0, len(self.orderedItemIds))
	for _, itemId := range self.orderedItemIds {
		itemCopy := *self.items[itemId]
		items = append(items, &itemCopy)
	}
	return items
}

func (self *ItemCollection) AddChangeCallback(changeCallback ChangeFunction) func() {
	callbackId := self.changeCallbacks.Add(changeCallback)
	return func() {
		self.changeCallbacks.Remove(callbackId)
	}
}

func (self *ItemCollection) change() {
	for _, callback := range self.changeCallbacks.Get() {
		HandleError(callback)
	}
}
