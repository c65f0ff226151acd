package listsync

import (
	"context"
	"fmt"

	"github.com/golang/glog"
)

// user visible error states for a failed list open. A failed open is
// terminal for the session; the caller renders the message in place
// of the item view and does not retry.
const ListNotFoundMessage = "This list was not found."
const ListLoadFailedMessage = "Something went wrong while loading the list."

type ListOpenError struct {
	// one of the messages above
	Message string
	Cause   error
}

func (self *ListOpenError) Error() string {
	return fmt.Sprintf("%s (%s)", self.Message, self.Cause)
}

func (self *ListOpenError) Unwrap() error {
	return self.Cause
}

func newListOpenError(cause error) *ListOpenError {
	message := ListLoadFailedMessage
	if IsNotFoundError(cause) {
		message = ListNotFoundMessage
	}
	return &ListOpenError{
		Message: message,
		Cause:   cause,
	}
}

// Session is the explicit per-login context: the access token, the
// identity claims parsed from it, and the api client. It is passed
// down to every component instead of living in ambient global state,
// and is torn down on logout.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl      string
	platformUrl string

	accessToken  string
	sessionToken *SessionToken

	api *ListApi
}

func NewSession(ctx context.Context, apiUrl string, platformUrl string, accessToken string) (*Session, error) {
	sessionToken, err := ParseSessionTokenUnverified(accessToken)
	if err != nil {
		return nil, err
	}

	cancelCtx, cancel := context.WithCancel(ctx)

	api := NewListApiWithContext(cancelCtx, apiUrl)
	api.SetAccessToken(accessToken)

	return &Session{
		ctx:          cancelCtx,
		cancel:       cancel,
		apiUrl:       apiUrl,
		platformUrl:  platformUrl,
		accessToken:  accessToken,
		sessionToken: sessionToken,
		api:          api,
	}, nil
}

func (self *Session) Api() *ListApi {
	return self.api
}

func (self *Session) Token() *SessionToken {
	return self.sessionToken
}

// the token may omit the email claim. The issuing flow knows the
// email either way, so it can be attached here for the self share
// guard.
func (self *Session) SetEmail(email string) {
	self.sessionToken.Email = email
}

func (self *Session) Email() string {
	return self.sessionToken.Email
}

func (self *Session) Logout() {
	self.cancel()
	self.api.Close()
}

type ListSessionSettings struct {
	ChannelSettings *ChannelSettings
}

func DefaultListSessionSettings() *ListSessionSettings {
	return &ListSessionSettings{
		ChannelSettings: DefaultChannelSettings(),
	}
}

// ListSession is one open view of one list: the synchronization
// engine, the permission gate, the mutation gateway, the sharing
// directory, and exactly one realtime channel. Opening the same list
// twice yields two independent sessions with two independent
// connections.
type ListSession struct {
	ctx    context.Context
	cancel context.CancelFunc

	session *Session
	listId  int64

	gate    *PermissionGate
	engine  *ItemCollection
	gateway *MutationGateway
	shares  *ShareDirectory
	channel *RealtimeChannel
}

func OpenListWithDefaults(ctx context.Context, session *Session, listId int64) (*ListSession, error) {
	return OpenList(ctx, session, listId, DefaultListSessionSettings())
}

// OpenList performs the three open-time fetches in parallel: the list,
// the items, and the viewer's permission. The channel is established
// only after all three have resolved; nothing is missed between fetch
// and connect except events from other viewers in that narrow window.
//
// A list or items failure is terminal and returns a *ListOpenError
// with the user visible message. A permission lookup failure is not
// terminal: the gate fails open to edit.
func OpenList(ctx context.Context, session *Session, listId int64, settings *ListSessionSettings) (*ListSession, error) {
	cancelCtx, cancel := context.WithCancel(ctx)
	// a logout tears down every open list session
	go func() {
		select {
		case <-session.ctx.Done():
			cancel()
		case <-cancelCtx.Done():
		}
	}()

	success := false
	defer func() {
		if !success {
			cancel()
		}
	}()

	api := session.api

	listCallback, listResults := NewBlockingApiCallback[*List](cancelCtx)
	itemsCallback, itemsResults := NewBlockingApiCallback[[]*Item](cancelCtx)
	permissionCallback, permissionResults := NewBlockingApiCallback[*ListPermissionResult](cancelCtx)

	api.GetList(listId, listCallback)
	api.GetItems(listId, itemsCallback)
	api.GetListPermission(listId, permissionCallback)

	var listResult ApiCallbackResult[*List]
	var itemsResult ApiCallbackResult[[]*Item]
	var permissionResult ApiCallbackResult[*ListPermissionResult]
	for i := 0; i < 3; i += 1 {
		select {
		case <-cancelCtx.Done():
			return nil, cancelCtx.Err()
		case listResult = <-listResults:
			listResults = nil
		case itemsResult = <-itemsResults:
			itemsResults = nil
		case permissionResult = <-permissionResults:
			permissionResults = nil
		}
	}

	if listResult.Error != nil {
		return nil, newListOpenError(listResult.Error)
	}
	if itemsResult.Error != nil {
		return nil, newListOpenError(itemsResult.Error)
	}

	gate := NewPermissionGate(listId)
	if permissionResult.Error != nil {
		glog.Infof("[session]list=%d permission lookup error = %s\n", listId, permissionResult.Error)
		gate.ResolveResult(&ListPermissionResult{})
	} else {
		gate.ResolveResult(permissionResult.Result)
	}

	engine := NewItemCollection(listId)
	engine.Reset(itemsResult.Result)

	gateway := NewMutationGateway(listId, gate, api, engine)
	gateway.SetSyncedTitle(listResult.Result.Title)

	shares := NewShareDirectory(listId, gate, api, session.Email())

	channel := NewRealtimeChannel(
		cancelCtx,
		session.platformUrl,
		listId,
		session.accessToken,
		engine,
		settings.ChannelSettings,
	)
	gateway.SetChannel(channel)

	success = true
	return &ListSession{
		ctx:     cancelCtx,
		cancel:  cancel,
		session: session,
		listId:  listId,
		gate:    gate,
		engine:  engine,
		gateway: gateway,
		shares:  shares,
		channel: channel,
	}, nil
}

func (self *ListSession) ListId() int64 {
	return self.listId
}

// the channel connection's instance id, unique per open
func (self *ListSession) InstanceId() Id {
	return self.channel.InstanceId()
}

func (self *ListSession) Permission() Permission {
	return self.gate.Permission()
}

func (self *ListSession) IsOwner() bool {
	return self.gate.IsOwner()
}

func (self *ListSession) Title() string {
	return self.gateway.SyncedTitle()
}

func (self *ListSession) Items() []*Item {
	return self.engine.Items()
}

func (self *ListSession) Engine() *ItemCollection {
	return self.engine
}

func (self *ListSession) Gateway() *MutationGateway {
	return self.gateway
}

func (self *ListSession) Shares() *ShareDirectory {
	return self.shares
}

func (self *ListSession) Channel() *RealtimeChannel {
	return self.channel
}

// mutation conveniences bound to the session lifetime: an in-flight
// call that resolves after Close is discarded, not applied

func (self *ListSession) CreateItem(body string) (*Item, error) {
	return self.gateway.CreateItem(self.ctx, body)
}

func (self *ListSession) EditBody(itemId int64, body string) (*Item, error) {
	return self.gateway.EditBody(self.ctx, itemId, body)
}

func (self *ListSession) SetCompleted(itemId int64, completed bool) (*Item, error) {
	return self.gateway.SetCompleted(self.ctx, itemId, completed)
}

func (self *ListSession) DeleteItem(itemId int64) error {
	return self.gateway.DeleteItem(self.ctx, itemId)
}

func (self *ListSession) RenameTitle(title string) error {
	return self.gateway.RenameTitle(self.ctx, title)
}

// close the channel and invalidate the session, exactly once
func (self *ListSession) Close() {
	self.channel.Close()
	self.cancel()
}
