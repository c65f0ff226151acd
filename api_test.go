package listsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestGetItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/items/", r.URL.Path)
		assert.Equal(t, "todo_list=5", r.URL.RawQuery)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": 1, "todo_list": 5, "body": "A", "completed": false},
			{"id": 2, "todo_list": 5, "body": "B", "completed": true}
		]`)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)
	api.SetAccessToken("test-token")

	items, err := api.GetItemsSync(ctx, 5)
	assert.Equal(t, err, nil)
	assert.Equal(t, 2, len(items))
	assert.Equal(t, int64(1), items[0].ItemId)
	assert.Equal(t, "A", items[0].Body)
	assert.Equal(t, true, items[1].Completed)
}

func TestCreateItem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/items/", r.URL.Path)

		bodyBytes, _ := io.ReadAll(r.Body)
		var args map[string]any
		json.Unmarshal(bodyBytes, &args)
		assert.Equal(t, "buy milk", args["body"])
		assert.Equal(t, float64(5), args["todo_list"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 9, "todo_list": 5, "body": "buy milk", "completed": false}`)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)
	api.SetAccessToken("test-token")

	item, err := api.CreateItemSync(ctx, &CreateItemArgs{
		Body:   "buy milk",
		ListId: 5,
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, int64(9), item.ItemId)
	assert.Equal(t, "buy milk", item.Body)
}

func TestUpdateItemPartialPatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PATCH", r.Method)
		assert.Equal(t, "/items/9/", r.URL.Path)

		bodyBytes, _ := io.ReadAll(r.Body)
		var args map[string]any
		json.Unmarshal(bodyBytes, &args)
		// completed only. The body field must be absent.
		assert.Equal(t, true, args["completed"])
		_, hasBody := args["body"]
		assert.Equal(t, hasBody, false)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 9, "todo_list": 5, "body": "buy milk", "completed": true}`)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)

	completed := true
	item, err := api.UpdateItemSync(ctx, 9, &UpdateItemArgs{
		Completed: &completed,
	})
	assert.Equal(t, err, nil)
	assert.Equal(t, true, item.Completed)
}

func TestDeleteItemNoContent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/items/9/", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)

	_, err := api.DeleteItemSync(ctx, 9)
	assert.Equal(t, err, nil)
}

func TestNotFoundStatusError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)

	_, err := api.GetListSync(ctx, 404)
	assert.NotEqual(t, err, nil)
	assert.Equal(t, IsNotFoundError(err), true)

	statusErr, ok := err.(*HttpStatusError)
	assert.Equal(t, ok, true)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, "not found", statusErr.Message)
}

func TestServerErrorIsNotNotFound(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)

	_, err := api.GetListSync(ctx, 1)
	assert.NotEqual(t, err, nil)
	assert.Equal(t, IsNotFoundError(err), false)
}

func TestGetListPermission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lists/5/permission/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"permission": "view", "is_owner": false}`)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)

	result, err := api.GetListPermissionSync(ctx, 5)
	assert.Equal(t, err, nil)
	assert.Equal(t, PermissionView, result.Permission)
	assert.Equal(t, false, result.IsOwner)
}

func TestApiCallbackAsync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 5, "title": "groceries"}`)
	}))
	defer server.Close()

	api := NewListApiWithContext(ctx, server.URL)

	callback, results := NewBlockingApiCallback[*List](ctx)
	api.GetList(5, callback)

	result := <-results
	assert.Equal(t, result.Error, nil)
	assert.Equal(t, "groceries", result.Result.Title)
}
