package listsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

// non-2xx response. The response body is the server's error message.
type HttpStatusError struct {
	StatusCode int
	Message    string
}

func (self *HttpStatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", self.StatusCode, self.Message)
}

func (self *HttpStatusError) IsNotFound() bool {
	return self.StatusCode == http.StatusNotFound
}

func IsNotFoundError(err error) bool {
	if statusErr, ok := err.(*HttpStatusError); ok {
		return statusErr.IsNotFound()
	}
	return false
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any](ctx context.Context) (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R], 1)
	apiCallback := NewApiCallback[R](func(result R, err error) {
		r := ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
		select {
		case c <- r:
		case <-ctx.Done():
		}
	})
	return apiCallback, c
}

// client for the authoritative list store.
// all calls carry the session access token as a bearer header.
type ListApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string

	accessToken string
}

func NewListApi(apiUrl string) *ListApi {
	return NewListApiWithContext(context.Background(), apiUrl)
}

func NewListApiWithContext(ctx context.Context, apiUrl string) *ListApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &ListApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
	}
}

// this gets attached to all api calls
func (self *ListApi) SetAccessToken(accessToken string) {
	self.accessToken = accessToken
}

func (self *ListApi) Close() {
	self.cancel()
}

type GetListCallback apiCallback[*List]

func (self *ListApi) GetList(listId int64, callback GetListCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/lists/%d/", self.apiUrl, listId),
		self.accessToken,
		&List{},
		callback,
	)
}

func (self *ListApi) GetListSync(ctx context.Context, listId int64) (*List, error) {
	return get(
		ctx,
		fmt.Sprintf("%s/lists/%d/", self.apiUrl, listId),
		self.accessToken,
		&List{},
		NewNoopApiCallback[*List](),
	)
}

type UpdateListTitleCallback apiCallback[*List]

type UpdateListTitleArgs struct {
	Title string `json:"title"`
}

func (self *ListApi) UpdateListTitle(listId int64, updateListTitle *UpdateListTitleArgs, callback UpdateListTitleCallback) {
	go request(
		self.ctx,
		"PATCH",
		fmt.Sprintf("%s/lists/%d/", self.apiUrl, listId),
		updateListTitle,
		self.accessToken,
		&List{},
		callback,
	)
}

func (self *ListApi) UpdateListTitleSync(ctx context.Context, listId int64, updateListTitle *UpdateListTitleArgs) (*List, error) {
	return request(
		ctx,
		"PATCH",
		fmt.Sprintf("%s/lists/%d/", self.apiUrl, listId),
		updateListTitle,
		self.accessToken,
		&List{},
		NewNoopApiCallback[*List](),
	)
}

type GetItemsCallback apiCallback[[]*Item]

func (self *ListApi) GetItems(listId int64, callback GetItemsCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/items/?todo_list=%d", self.apiUrl, listId),
		self.accessToken,
		[]*Item{},
		callback,
	)
}

func (self *ListApi) GetItemsSync(ctx context.Context, listId int64) ([]*Item, error) {
	return get(
		ctx,
		fmt.Sprintf("%s/items/?todo_list=%d", self.apiUrl, listId),
		self.accessToken,
		[]*Item{},
		NewNoopApiCallback[[]*Item](),
	)
}

type CreateItemCallback apiCallback[*Item]

type CreateItemArgs struct {
	Body   string `json:"body"`
	ListId int64  `json:"todo_list"`
}

func (self *ListApi) CreateItem(createItem *CreateItemArgs, callback CreateItemCallback) {
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/items/", self.apiUrl),
		createItem,
		self.accessToken,
		&Item{},
		callback,
	)
}

func (self *ListApi) CreateItemSync(ctx context.Context, createItem *CreateItemArgs) (*Item, error) {
	return request(
		ctx,
		"POST",
		fmt.Sprintf("%s/items/", self.apiUrl),
		createItem,
		self.accessToken,
		&Item{},
		NewNoopApiCallback[*Item](),
	)
}

type UpdateItemCallback apiCallback[*Item]

// body and completed are independent partial updates.
// nil fields are omitted from the patch.
type UpdateItemArgs struct {
	Body      *string `json:"body,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

func (self *ListApi) UpdateItem(itemId int64, updateItem *UpdateItemArgs, callback UpdateItemCallback) {
	go request(
		self.ctx,
		"PATCH",
		fmt.Sprintf("%s/items/%d/", self.apiUrl, itemId),
		updateItem,
		self.accessToken,
		&Item{},
		callback,
	)
}

func (self *ListApi) UpdateItemSync(ctx context.Context, itemId int64, updateItem *UpdateItemArgs) (*Item, error) {
	return request(
		ctx,
		"PATCH",
		fmt.Sprintf("%s/items/%d/", self.apiUrl, itemId),
		updateItem,
		self.accessToken,
		&Item{},
		NewNoopApiCallback[*Item](),
	)
}

type DeleteItemCallback apiCallback[*DeleteItemResult]

type DeleteItemResult struct{}

func (self *ListApi) DeleteItem(itemId int64, callback DeleteItemCallback) {
	go request(
		self.ctx,
		"DELETE",
		fmt.Sprintf("%s/items/%d/", self.apiUrl, itemId),
		nil,
		self.accessToken,
		&DeleteItemResult{},
		callback,
	)
}

func (self *ListApi) DeleteItemSync(ctx context.Context, itemId int64) (*DeleteItemResult, error) {
	return request(
		ctx,
		"DELETE",
		fmt.Sprintf("%s/items/%d/", self.apiUrl, itemId),
		nil,
		self.accessToken,
		&DeleteItemResult{},
		NewNoopApiCallback[*DeleteItemResult](),
	)
}

type GetListPermissionCallback apiCallback[*ListPermissionResult]

type ListPermissionResult struct {
	Permission Permission `json:"permission,omitempty"`
	IsOwner    bool       `json:"is_owner,omitempty"`
}

func (self *ListApi) GetListPermission(listId int64, callback GetListPermissionCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/lists/%d/permission/", self.apiUrl, listId),
		self.accessToken,
		&ListPermissionResult{},
		callback,
	)
}

func (self *ListApi) GetListPermissionSync(ctx context.Context, listId int64) (*ListPermissionResult, error) {
	return get(
		ctx,
		fmt.Sprintf("%s/lists/%d/permission/", self.apiUrl, listId),
		self.accessToken,
		&ListPermissionResult{},
		NewNoopApiCallback[*ListPermissionResult](),
	)
}

type GetSharesCallback apiCallback[[]*Share]

func (self *ListApi) GetShares(listId int64, callback GetSharesCallback) {
	go get(
		self.ctx,
		fmt.Sprintf("%s/shared-todolists/?list_id=%d", self.apiUrl, listId),
		self.accessToken,
		[]*Share{},
		callback,
	)
}

func (self *ListApi) GetSharesSync(ctx context.Context, listId int64) ([]*Share, error) {
	return get(
		ctx,
		fmt.Sprintf("%s/shared-todolists/?list_id=%d", self.apiUrl, listId),
		self.accessToken,
		[]*Share{},
		NewNoopApiCallback[[]*Share](),
	)
}

type CreateShareCallback apiCallback[*Share]

type CreateShareArgs struct {
	ListId          int64      `json:"todo_list"`
	SharedWithEmail string     `json:"shared_with_email"`
	Permission      Permission `json:"permission"`
}

func (self *ListApi) CreateShare(createShare *CreateShareArgs, callback CreateShareCallback) {
	go request(
		self.ctx,
		"POST",
		fmt.Sprintf("%s/shared-todolists/", self.apiUrl),
		createShare,
		self.accessToken,
		&Share{},
		callback,
	)
}

func (self *ListApi) CreateShareSync(ctx context.Context, createShare *CreateShareArgs) (*Share, error) {
	return request(
		ctx,
		"POST",
		fmt.Sprintf("%s/shared-todolists/", self.apiUrl),
		createShare,
		self.accessToken,
		&Share{},
		NewNoopApiCallback[*Share](),
	)
}

type UpdateShareCallback apiCallback[*Share]

type UpdateShareArgs struct {
	Permission Permission `json:"permission"`
}

func (self *ListApi) UpdateSharePermission(shareId int64, updateShare *UpdateShareArgs, callback UpdateShareCallback) {
	go request(
		self.ctx,
		"PATCH",
		fmt.Sprintf("%s/shared-todolists/%d/", self.apiUrl, shareId),
		updateShare,
		self.accessToken,
		&Share{},
		callback,
	)
}

func (self *ListApi) UpdateSharePermissionSync(ctx context.Context, shareId int64, updateShare *UpdateShareArgs) (*Share, error) {
	return request(
		ctx,
		"PATCH",
		fmt.Sprintf("%s/shared-todolists/%d/", self.apiUrl, shareId),
		updateShare,
		self.accessToken,
		&Share{},
		NewNoopApiCallback[*Share](),
	)
}

type DeleteShareCallback apiCallback[*DeleteShareResult]

type DeleteShareResult struct{}

func (self *ListApi) DeleteShare(shareId int64, callback DeleteShareCallback) {
	go request(
		self.ctx,
		"DELETE",
		fmt.Sprintf("%s/shared-todolists/%d/", self.apiUrl, shareId),
		nil,
		self.accessToken,
		&DeleteShareResult{},
		callback,
	)
}

func (self *ListApi) DeleteShareSync(ctx context.Context, shareId int64) (*DeleteShareResult, error) {
	return request(
		ctx,
		"DELETE",
		fmt.Sprintf("%s/shared-todolists/%d/", self.apiUrl, shareId),
		nil,
		self.accessToken,
		&DeleteShareResult{},
		NewNoopApiCallback[*DeleteShareResult](),
	)
}

func request[R any](ctx context.Context, method string, url string, args any, accessToken string, result R, callback apiCallback[R]) (R, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "application/json")

	if accessToken != "" {
		auth := fmt.Sprintf("Bearer %s", accessToken)
		req.Header.Add("Authorization", auth)
	}

	client := defaultClient()
	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if r.StatusCode < http.StatusOK || http.StatusMultipleChoices <= r.StatusCode {
		// the response body is the error message
		err = &HttpStatusError{
			StatusCode: r.StatusCode,
			Message:    strings.TrimSpace(string(responseBodyBytes)),
		}
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	if 0 < len(responseBodyBytes) {
		err = json.Unmarshal(responseBodyBytes, &result)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	callback.Result(result, nil)
	return result, nil
}

func get[R any](ctx context.Context, url string, accessToken string, result R, callback apiCallback[R]) (R, error) {
	return request(ctx, "GET", url, nil, accessToken, result, callback)
}
