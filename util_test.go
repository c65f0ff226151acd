package listsync

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestCallbackList(t *testing.T) {
	callbacks := NewCallbackList[func(int)]()

	values := []int{}
	aId := callbacks.Add(func(v int) {
		values = append(values, v)
	})
	bId := callbacks.Add(func(v int) {
		values = append(values, 10*v)
	})

	for _, callback := range callbacks.Get() {
		callback(1)
	}
	// add order preserved
	assert.Equal(t, []int{1, 10}, values)

	callbacks.Remove(aId)
	for _, callback := range callbacks.Get() {
		callback(2)
	}
	assert.Equal(t, []int{1, 10, 20}, values)

	// removing twice is a no-op
	callbacks.Remove(aId)
	callbacks.Remove(bId)
	assert.Equal(t, 0, len(callbacks.Get()))
}

func TestMonitorNotifyAll(t *testing.T) {
	monitor := NewMonitor()
	assert.Equal(t, uint64(0), monitor.Sequence())

	notifyA := monitor.NotifyChannel()
	notifyB := monitor.NotifyChannel()
	assert.Equal(t, notifyA, notifyB)

	select {
	case <-notifyA:
		t.Fatal("notified early")
	default:
	}

	sequence := monitor.NotifyAll()
	assert.Equal(t, uint64(1), sequence)

	// all waiters on the previous channel wake
	<-notifyA
	<-notifyB

	// a fresh channel is armed for the next notify
	notifyC := monitor.NotifyChannel()
	select {
	case <-notifyC:
		t.Fatal("notified early")
	default:
	}

	assert.Equal(t, uint64(2), monitor.NotifyAll())
	<-notifyC
}
