package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeSubscriber struct {
	ch chan Message
}

func (s *fakeSubscriber) Subscribe(context.Context, ...string) (<-chan Message, error) {
	return s.ch, nil
}

type capturingPublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads []interface{}
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.topics)
}

func (p *capturingPublisher) at(i int) (string, interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.topics[i], p.payloads[i]
}

type scriptedHandler struct {
	mu        sync.Mutex
	entries   []GateRequest
	exits     []GateRequest
	entryResp *EntryResponse
	exitResp  *ExitResponse
	err       error
}

func (h *scriptedHandler) HandleEntry(_ context.Context, req GateRequest) (*EntryResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, req)
	if h.err != nil {
		return nil, h.err
	}
	return h.entryResp, nil
}

func (h *scriptedHandler) HandleExit(_ context.Context, req GateRequest) (*ExitResponse, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exits = append(h.exits, req)
	if h.err != nil {
		return nil, h.err
	}
	return h.exitResp, nil
}

func (h *scriptedHandler) handled() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries) + len(h.exits)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startIngress(t *testing.T, handler GateHandler) (chan Message, *capturingPublisher) {
	t.Helper()
	sub := &fakeSubscriber{ch: make(chan Message)}
	pub := &capturingPublisher{}
	ingress := NewIngress(sub, pub, handler, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = ingress.Run(ctx) }()

	return sub.ch, pub
}

func TestIngressDispatchesEntry(t *testing.T) {
	handler := &scriptedHandler{entryResp: &EntryResponse{Success: true, UserName: "Asha", SlotNumber: 3}}
	ch, pub := startIngress(t, handler)

	ch <- Message{Topic: TopicEntry, Payload: []byte(`{"rfid":"tag-1","deviceId":"gate-1"}`)}

	waitFor(t, func() bool { return pub.count() == 1 })
	topic, payload := pub.at(0)
	if topic != TopicEntryResponse {
		t.Errorf("topic = %q, want %q", topic, TopicEntryResponse)
	}
	resp, ok := payload.(*EntryResponse)
	if !ok || !resp.Success || resp.SlotNumber != 3 {
		t.Errorf("payload = %#v, want the handler's entry response", payload)
	}
	if len(handler.entries) != 1 || handler.entries[0].RFID != "tag-1" || handler.entries[0].DeviceID != "gate-1" {
		t.Errorf("handler saw %+v, want decoded request", handler.entries)
	}
}

func TestIngressDispatchesExit(t *testing.T) {
	balance := int64(35)
	handler := &scriptedHandler{exitResp: &ExitResponse{
		Success:       true,
		PaymentStatus: PaymentStatusSettled,
		WalletBalance: &balance,
	}}
	ch, pub := startIngress(t, handler)

	ch <- Message{Topic: TopicExit, Payload: []byte(`{"rfid":"tag-1","deviceId":"gate-2"}`)}

	waitFor(t, func() bool { return pub.count() == 1 })
	topic, payload := pub.at(0)
	if topic != TopicExitResponse {
		t.Errorf("topic = %q, want %q", topic, TopicExitResponse)
	}
	if resp, ok := payload.(*ExitResponse); !ok || resp.PaymentStatus != PaymentStatusSettled {
		t.Errorf("payload = %#v, want the handler's exit response", payload)
	}
}

func TestIngressDropsMalformedPayload(t *testing.T) {
	handler := &scriptedHandler{entryResp: &EntryResponse{Success: true}}
	ch, pub := startIngress(t, handler)

	ch <- Message{Topic: TopicEntry, Payload: []byte(`{not-json`)}
	ch <- Message{Topic: TopicEntry, Payload: []byte(`{"deviceId":"gate-1"}`)}

	// A valid message afterwards proves the loop survived the bad ones.
	ch <- Message{Topic: TopicEntry, Payload: []byte(`{"rfid":"tag-1"}`)}

	waitFor(t, func() bool { return pub.count() == 1 })
	if handler.handled() != 1 {
		t.Errorf("handled = %d, want only the valid event", handler.handled())
	}
}

func TestIngressDropsEventOnHandlerError(t *testing.T) {
	failing := &scriptedHandler{err: context.DeadlineExceeded}
	ch, pub := startIngress(t, failing)

	ch <- Message{Topic: TopicExit, Payload: []byte(`{"rfid":"tag-1"}`)}

	waitFor(t, func() bool { return failing.handled() == 1 })
	time.Sleep(20 * time.Millisecond)
	if pub.count() != 0 {
		t.Errorf("published %d responses, want none on handler failure", pub.count())
	}
}
