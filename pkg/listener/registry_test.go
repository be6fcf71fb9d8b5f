package listener_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"kenes-socket-go/pkg/listener"
	"kenes-socket-go/pkg/listener/listenertest"
)

func TestRegistryStartsEmpty(t *testing.T) {
	r := listener.NewRegistry()

	assert.Nil(t, r.ConnectionState())
	assert.Nil(t, r.Call())
	assert.Nil(t, r.ChatBot())
	assert.Nil(t, r.Dialog())
	assert.Nil(t, r.Form())
	assert.Nil(t, r.WebRTC())
	assert.Nil(t, r.Location())
	assert.Nil(t, r.Task())
}

func TestRegistrySetReplaces(t *testing.T) {
	r := listener.NewRegistry()
	first := &listenertest.ChatBot{}
	second := &listenertest.ChatBot{}

	r.SetChatBot(first)
	assert.Same(t, first, r.ChatBot())

	r.SetChatBot(second)
	assert.Same(t, second, r.ChatBot())

	r.SetChatBot(nil)
	assert.Nil(t, r.ChatBot())
}

func TestRegistryClear(t *testing.T) {
	r := listener.NewRegistry()
	r.SetConnectionState(&listenertest.ConnectionState{})
	r.SetCall(&listenertest.Call{})
	r.SetChatBot(&listenertest.ChatBot{})
	r.SetDialog(&listenertest.Dialog{})
	r.SetForm(&listenertest.Form{})
	r.SetWebRTC(&listenertest.WebRTC{})
	r.SetLocation(&listenertest.Location{})
	r.SetTask(&listenertest.Task{})

	r.Clear()

	assert.Nil(t, r.ConnectionState())
	assert.Nil(t, r.Call())
	assert.Nil(t, r.ChatBot())
	assert.Nil(t, r.Dialog())
	assert.Nil(t, r.Form())
	assert.Nil(t, r.WebRTC())
	assert.Nil(t, r.Location())
	assert.Nil(t, r.Task())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := listener.NewRegistry()
	call := &listenertest.Call{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			r.SetCall(call)
		}()
		go func() {
			defer wg.Done()
			_ = r.Call()
		}()
		go func() {
			defer wg.Done()
			r.Clear()
		}()
	}
	wg.Wait()
}

func TestResult(t *testing.T) {
	assert.True(t, listener.Consumed.IsConsumed())
	assert.False(t, listener.NotConsumed.IsConsumed())
	assert.Equal(t, listener.Consumed, listener.ResultOf(true))
	assert.Equal(t, listener.NotConsumed, listener.ResultOf(false))
	assert.Equal(t, "consumed", listener.Consumed.String())
}

func TestConnectionStateFuncs(t *testing.T) {
	connected := false
	l := listener.ConnectionStateFuncs{Connect: func() { connected = true }}

	l.OnConnect()
	l.OnDisconnect()

	assert.True(t, connected)
}
