package listener

import "sync"

// Registry holds at most one subscriber per listener category. It is safe
// for concurrent use: setters and Clear may run on any goroutine while the
// dispatch path reads.
type Registry struct {
	mu              sync.RWMutex
	connectionState ConnectionStateListener
	call            CallListener
	chatBot         ChatBotListener
	dialog          DialogListener
	form            FormListener
	webRTC          WebRTCListener
	location        LocationListener
	task            TaskListener
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) SetConnectionState(l ConnectionStateListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectionState = l
}

func (r *Registry) SetCall(l CallListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.call = l
}

func (r *Registry) SetChatBot(l ChatBotListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatBot = l
}

func (r *Registry) SetDialog(l DialogListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialog = l
}

func (r *Registry) SetForm(l FormListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.form = l
}

func (r *Registry) SetWebRTC(l WebRTCListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.webRTC = l
}

func (r *Registry) SetLocation(l LocationListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.location = l
}

func (r *Registry) SetTask(l TaskListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.task = l
}

func (r *Registry) ConnectionState() ConnectionStateListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connectionState
}

func (r *Registry) Call() CallListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.call
}

func (r *Registry) ChatBot() ChatBotListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chatBot
}

func (r *Registry) Dialog() DialogListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dialog
}

func (r *Registry) Form() FormListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.form
}

func (r *Registry) WebRTC() WebRTCListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.webRTC
}

func (r *Registry) Location() LocationListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.location
}

func (r *Registry) Task() TaskListener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.task
}

// Clear removes every subscriber at once
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connectionState = nil
	r.call = nil
	r.chatBot = nil
	r.dialog = nil
	r.form = nil
	r.webRTC = nil
	r.location = nil
	r.task = nil
}
