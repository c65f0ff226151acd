package listsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// inbound and outbound wire shape on the realtime channel.
// a tagged union: `todo_created` and `todo_updated` carry the full
// item, `todo_deleted` carries only the item id. Events are transient
// and only drive engine merges, never persisted.
const (
	EventTypeCreated = "todo_created"
	EventTypeUpdated = "todo_updated"
	EventTypeDeleted = "todo_deleted"
)

type BroadcastEvent struct {
	Type   string `json:"type"`
	Todo   *Item  `json:"todo,omitempty"`
	TodoId int64  `json:"todo_id,omitempty"`
}

func NewCreatedEvent(item *Item) *BroadcastEvent {
	return &BroadcastEvent{
		Type: EventTypeCreated,
		Todo: item,
	}
}

func NewUpdatedEvent(item *Item) *BroadcastEvent {
	return &BroadcastEvent{
		Type: EventTypeUpdated,
		Todo: item,
	}
}

func NewDeletedEvent(itemId int64) *BroadcastEvent {
	return &BroadcastEvent{
		Type:   EventTypeDeleted,
		TodoId: itemId,
	}
}

const (
	ChannelStateClosed     = "closed"
	ChannelStateConnecting = "connecting"
	ChannelStateOpen       = "open"
)

type ChannelSettings struct {
	WsHandshakeTimeout time.Duration
	PingTimeout        time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
	SendBufferSize     int
}

func DefaultChannelSettings() *ChannelSettings {
	return &ChannelSettings{
		WsHandshakeTimeout: 5 * time.Second,
		PingTimeout:        15 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadTimeout:        60 * time.Second,
		SendBufferSize:     8,
	}
}

// RealtimeChannel owns exactly one websocket connection scoped to one
// open list. It relays outbound events handed to it by the mutation
// gateway and dispatches inbound events to the synchronization engine.
// It never originates domain decisions.
//
// There is no reconnect on error or close. Other viewers converge on
// their next full reload. A hardened version would add backoff
// reconnection plus a resynchronization fetch, but the minimal
// best-effort behavior is deliberate here.
type RealtimeChannel struct {
	ctx    context.Context
	cancel context.CancelFunc

	// distinguishes connections in the logs when the same list is
	// open more than once
	instanceId Id

	platformUrl string
	listId      int64
	accessToken string

	engine *ItemCollection

	settings *ChannelSettings

	stateLock sync.Mutex
	state     string

	send chan []byte
}

func NewRealtimeChannelWithDefaults(
	ctx context.Context,
	platformUrl string,
	listId int64,
	accessToken string,
	engine *ItemCollection,
) *RealtimeChannel {
	return NewRealtimeChannel(ctx, platformUrl, listId, accessToken, engine, DefaultChannelSettings())
}

func NewRealtimeChannel(
	ctx context.Context,
	platformUrl string,
	listId int64,
	accessToken string,
	engine *ItemCollection,
	settings *ChannelSettings,
) *RealtimeChannel {
	cancelCtx, cancel := context.WithCancel(ctx)
	channel := &RealtimeChannel{
		ctx:         cancelCtx,
		cancel:      cancel,
		instanceId:  NewId(),
		platformUrl: platformUrl,
		listId:      listId,
		accessToken: accessToken,
		engine:      engine,
		settings:    settings,
		state:       ChannelStateConnecting,
		send:        make(chan []byte, settings.SendBufferSize),
	}
	go channel.run()
	return channel
}

// the transport does not support custom headers at establishment,
// so the token rides as a connection query parameter
func (self *RealtimeChannel) connectUrl() string {
	return fmt.Sprintf(
		"%s/ws/todo/%d/?token=%s",
		self.platformUrl,
		self.listId,
		url.QueryEscape(self.accessToken),
	)
}

func (self *RealtimeChannel) run() {
	defer func() {
		self.cancel()
		self.setState(ChannelStateClosed)
	}()

	connect := func() (*websocket.Conn, error) {
		dialer := &websocket.Dialer{
			HandshakeTimeout: self.settings.WsHandshakeTimeout,
		}
		ws, _, err := dialer.DialContext(self.ctx, self.connectUrl(), nil)
		return ws, err
	}

	var ws *websocket.Conn
	var err error
	if glog.V(2) {
		ws, err = TraceWithReturnError(fmt.Sprintf("[ch]connect list=%d", self.listId), connect)
	} else {
		ws, err = connect()
	}
	if err != nil {
		glog.Infof("[ch]list=%d inst=%s connect error = %s\n", self.listId, self.instanceId, err)
		return
	}
	defer ws.Close()

	self.setState(ChannelStateOpen)
	glog.V(2).Infof("[ch]list=%d inst=%s open\n", self.listId, self.instanceId)

	handleCtx, handleCancel := context.WithCancel(self.ctx)
	defer handleCancel()

	go func() {
		defer handleCancel()

		for {
			select {
			case <-handleCtx.Done():
				return
			case message, ok := <-self.send:
				if !ok {
					return
				}

				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.TextMessage, message); err != nil {
					// a websocket deadline timeout cannot be recovered
					glog.Infof("[ch]list=%d -> error = %s\n", self.listId, err)
					return
				}
				glog.V(2).Infof("[ch]list=%d ->\n", self.listId)
			case <-time.After(self.settings.PingTimeout):
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	go func() {
		defer handleCancel()

		// pongs count as liveness. The writer pings every
		// `PingTimeout`, so a healthy but quiet connection keeps
		// extending its own read deadline.
		ws.SetPongHandler(func(appData string) error {
			glog.V(2).Infof("[ch]list=%d <- pong\n", self.listId)
			return ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
		})

		for {
			select {
			case <-handleCtx.Done():
				return
			default:
			}

			ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
			messageType, message, err := ws.ReadMessage()
			if err != nil {
				glog.Infof("[ch]list=%d <- error = %s\n", self.listId, err)
				return
			}

			switch messageType {
			case websocket.TextMessage:
				if len(message) == 0 {
					// keep alive
					continue
				}
				self.dispatch(message)
			default:
				glog.V(2).Infof("[ch]list=%d <- other=%d\n", self.listId, messageType)
			}
		}
	}()

	select {
	case <-handleCtx.Done():
	}
}

// inbound messages are processed in transport delivery order.
// the engine merge policy makes any interleaving with direct
// responses safe.
func (self *RealtimeChannel) dispatch(message []byte) {
	var event BroadcastEvent
	if err := json.Unmarshal(message, &event); err != nil {
		glog.Infof("[ch]list=%d <- decode error = %s\n", self.listId, err)
		return
	}

	switch event.Type {
	case EventTypeCreated:
		if event.Todo != nil {
			self.engine.ApplyCreated(event.Todo)
		}
	case EventTypeUpdated:
		if event.Todo != nil {
			self.engine.ApplyUpdated(event.Todo)
		}
	case EventTypeDeleted:
		self.engine.ApplyDeleted(event.TodoId)
	default:
		glog.Infof("[ch]list=%d <- unknown type=%s ignored\n", self.listId, event.Type)
	}
}

// relay an event to other viewers. Attempted only while open;
// otherwise the event is dropped. Returns whether the event was
// queued for send.
func (self *RealtimeChannel) Send(event *BroadcastEvent) bool {
	if self.State() != ChannelStateOpen {
		glog.V(2).Infof("[ch]list=%d drop send, not open\n", self.listId)
		return false
	}

	message, err := json.Marshal(event)
	if err != nil {
		glog.Infof("[ch]list=%d send encode error = %s\n", self.listId, err)
		return false
	}

	select {
	case <-self.ctx.Done():
		return false
	case self.send <- message:
		return true
	default:
		// full
		glog.Infof("[ch]list=%d drop send, buffer full\n", self.listId)
		return false
	}
}

func (self *RealtimeChannel) InstanceId() Id {
	return self.instanceId
}

func (self *RealtimeChannel) State() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.state
}

func (self *RealtimeChannel) IsOpen() bool {
	return self.State() == ChannelStateOpen
}

func (self *RealtimeChannel) setState(state string) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if self.state == ChannelStateClosed {
		// closed is terminal
		return
	}
	self.state = state
}

// idempotent. After close no further sends or receives are valid.
func (self *RealtimeChannel) Close() {
	self.cancel()
}

// blocks until the connect attempt settles into open or closed
func (self *RealtimeChannel) WaitForOpen(timeout time.Duration) bool {
	endTime := time.Now().Add(timeout)
	for {
		switch self.State() {
		case ChannelStateOpen:
			return true
		case ChannelStateClosed:
			return false
		}
		if timeout >= 0 && !time.Now().Before(endTime) {
			return self.State() == ChannelStateOpen
		}
		select {
		case <-self.ctx.Done():
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}
