package connector

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeConnector embeds Base and records lifecycle calls so factory and
// manager behavior can be tested without a real transport.
type fakeConnector struct {
	*Base

	connectErr error
	startErr   error
	stopErr    error

	connectCalls    int
	disconnectCalls int
	startCalls      int
	stopCalls       int
	closeCalls      int
}

func newFakeConnector(cfg *Config, logger Logger) *fakeConnector {
	return &fakeConnector{Base: NewBase(cfg, logger)}
}

func fakeBuilder(cfg *Config, logger Logger) (Connector, error) {
	return newFakeConnector(cfg, logger), nil
}

func (f *fakeConnector) Connect(ctx context.Context) error {
	f.connectCalls++
	if f.connectErr != nil {
		f.SetError(f.connectErr.Error())
		return f.connectErr
	}
	f.SetStatus(StatusConnected)
	return nil
}

func (f *fakeConnector) Disconnect(ctx context.Context) error {
	f.disconnectCalls++
	f.SetStatus(StatusDisconnected)
	return nil
}

func (f *fakeConnector) Start(ctx context.Context) error {
	f.startCalls++
	return f.startErr
}

func (f *fakeConnector) Stop() error {
	f.stopCalls++
	return f.stopErr
}

func (f *fakeConnector) Close() error {
	f.closeCalls++
	f.CloseEvents()
	return nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	factory := NewFactory()
	factory.Register(ProtocolModbusTCP, fakeBuilder)
	factory.Register(ProtocolBACnetIP, fakeBuilder)
	return NewManager(factory, nil)
}

func TestManager_AddAndGet(t *testing.T) {
	m := newTestManager(t)

	conn, err := m.Add(testConfig("plc-1", ProtocolModbusTCP))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if conn.ID() != "plc-1" {
		t.Errorf("ID() = %q, want %q", conn.ID(), "plc-1")
	}

	got, err := m.Get("plc-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != conn {
		t.Error("Get() returned a different instance")
	}

	if _, err := m.Get("unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestManager_AddDuplicateID(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Add(testConfig("plc-1", ProtocolModbusTCP)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := m.Add(testConfig("plc-1", ProtocolModbusTCP)); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate Add() error = %v, want ErrAlreadyExists", err)
	}
}

func TestManager_AddUnsupportedProtocol(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Add(testConfig("ua-1", ProtocolOPCUA)); !errors.Is(err, ErrUnsupportedProtocol) {
		t.Errorf("Add() error = %v, want ErrUnsupportedProtocol", err)
	}
	if len(m.List()) != 0 {
		t.Error("failed Add left connector in live set")
	}
}

func TestManager_UpdateRecreates(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	orig, err := m.Add(testConfig("plc-1", ProtocolModbusTCP))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	cfg := testConfig("plc-1", ProtocolModbusTCP)
	cfg.Name = "renamed"
	updated, err := m.Update(ctx, cfg)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated == orig {
		t.Error("Update() returned the original instance, want a recreated one")
	}
	if updated.Name() != "renamed" {
		t.Errorf("Name() = %q, want %q", updated.Name(), "renamed")
	}
	if orig.(*fakeConnector).closeCalls != 1 {
		t.Errorf("original closeCalls = %d, want 1", orig.(*fakeConnector).closeCalls)
	}
	if len(m.List()) != 1 {
		t.Errorf("len(List()) = %d, want 1", len(m.List()))
	}
}

func TestManager_UpdateUnknownIDAdds(t *testing.T) {
	m := newTestManager(t)

	conn, err := m.Update(context.Background(), testConfig("new-1", ProtocolModbusTCP))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if conn.ID() != "new-1" {
		t.Errorf("ID() = %q, want %q", conn.ID(), "new-1")
	}
}

func TestManager_RemoveDisposes(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	conn, err := m.Add(testConfig("plc-1", ProtocolModbusTCP))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	fake := conn.(*fakeConnector)

	if err := m.Remove(ctx, "plc-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if fake.stopCalls != 1 || fake.disconnectCalls != 1 || fake.closeCalls != 1 {
		t.Errorf("lifecycle calls = stop %d, disconnect %d, close %d; want 1 each",
			fake.stopCalls, fake.disconnectCalls, fake.closeCalls)
	}

	if err := m.Remove(ctx, "plc-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
}

func TestManager_RemoveToleratesStopFailure(t *testing.T) {
	m := newTestManager(t)

	conn, err := m.Add(testConfig("plc-1", ProtocolModbusTCP))
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	fake := conn.(*fakeConnector)
	fake.stopErr = errors.New("stuck goroutine")

	// Disposal must proceed past the stop failure and still release the
	// transport.
	if err := m.Remove(context.Background(), "plc-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if fake.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", fake.closeCalls)
	}
	if len(m.List()) != 0 {
		t.Error("connector still in live set after Remove")
	}
}

func TestManager_LookupByProtocolAndTenant(t *testing.T) {
	m := newTestManager(t)

	cfgA := testConfig("plc-1", ProtocolModbusTCP)
	cfgA.TenantID = "tenant-a"
	cfgB := testConfig("bac-1", ProtocolBACnetIP)
	cfgB.TenantID = "tenant-b"

	if _, err := m.Add(cfgA); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := m.Add(cfgB); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if got := m.GetByProtocol(ProtocolModbusTCP); len(got) != 1 || got[0].ID() != "plc-1" {
		t.Errorf("GetByProtocol(modbus-tcp) = %d connectors, want [plc-1]", len(got))
	}
	if got := m.GetByTenant("tenant-b"); len(got) != 1 || got[0].ID() != "bac-1" {
		t.Errorf("GetByTenant(tenant-b) = %d connectors, want [bac-1]", len(got))
	}
	if got := m.GetByTenant("tenant-c"); len(got) != 0 {
		t.Errorf("GetByTenant(tenant-c) = %d connectors, want 0", len(got))
	}
}

func TestManager_StartAllCollectsFailures(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	good, _ := m.Add(testConfig("good-1", ProtocolModbusTCP))
	bad, _ := m.Add(testConfig("bad-1", ProtocolModbusTCP))
	bad.(*fakeConnector).connectErr = errors.New("connection refused")

	err := m.StartAll(ctx)
	if err == nil {
		t.Fatal("StartAll() error = nil, want joined failure")
	}

	// The healthy connector must still have been started.
	if good.(*fakeConnector).startCalls != 1 {
		t.Errorf("good startCalls = %d, want 1", good.(*fakeConnector).startCalls)
	}
	if bad.(*fakeConnector).startCalls != 0 {
		t.Errorf("bad startCalls = %d, want 0 after connect failure", bad.(*fakeConnector).startCalls)
	}
	if bad.Status() != StatusError {
		t.Errorf("bad Status() = %q, want %q", bad.Status(), StatusError)
	}
}

func TestManager_StopAllTolerant(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	a, _ := m.Add(testConfig("a", ProtocolModbusTCP))
	b, _ := m.Add(testConfig("b", ProtocolModbusTCP))
	a.(*fakeConnector).stopErr = errors.New("wedged")

	err := m.StopAll(ctx)
	if err == nil {
		t.Fatal("StopAll() error = nil, want joined failure")
	}
	if b.(*fakeConnector).stopCalls != 1 {
		t.Errorf("b stopCalls = %d, want 1", b.(*fakeConnector).stopCalls)
	}
	if a.(*fakeConnector).disconnectCalls != 1 {
		t.Errorf("a disconnectCalls = %d, want 1 despite stop failure", a.(*fakeConnector).disconnectCalls)
	}
}

func TestManager_HealthAll(t *testing.T) {
	m := newTestManager(t)

	conn, _ := m.Add(testConfig("plc-1", ProtocolModbusTCP))
	conn.(*fakeConnector).SetStatus(StatusConnected)
	conn.(*fakeConnector).RecordSuccess(10 * time.Millisecond)

	health := m.HealthAll()
	if len(health) != 1 {
		t.Fatalf("len(HealthAll()) = %d, want 1", len(health))
	}
	snap, ok := health["plc-1"]
	if !ok {
		t.Fatal("HealthAll() missing plc-1")
	}
	if !snap.Healthy || snap.SuccessCount != 1 {
		t.Errorf("snapshot = healthy %v success %d, want true/1", snap.Healthy, snap.SuccessCount)
	}
}

func TestManager_EventFanIn(t *testing.T) {
	m := newTestManager(t)

	a, _ := m.Add(testConfig("a", ProtocolModbusTCP))
	b, _ := m.Add(testConfig("b", ProtocolBACnetIP))

	mp := PointMapping{ID: "p", DataType: TypeFloat32}
	a.(*fakeConnector).Emit([]DataPoint{a.(*fakeConnector).NewGoodPoint(mp, 1.0, time.Now().UTC())})
	b.(*fakeConnector).Emit([]DataPoint{b.(*fakeConnector).NewGoodPoint(mp, 2.0, time.Now().UTC())})

	got := make(map[string]bool)
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-m.Events():
			got[ev.ConnectorID] = true
		case <-timeout:
			t.Fatalf("fan-in delivered %d connector IDs after 2s, want 2", len(got))
		}
	}

	if !got["a"] || !got["b"] {
		t.Errorf("fan-in IDs = %v, want a and b", got)
	}
}

func TestManager_CloseClosesEventChannel(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	conn, _ := m.Add(testConfig("plc-1", ProtocolModbusTCP))

	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if conn.(*fakeConnector).closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", conn.(*fakeConnector).closeCalls)
	}

	select {
	case _, open := <-m.Events():
		if open {
			// Drain any buffered event, then require closure.
			for range m.Events() {
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("manager event channel not closed after Close()")
	}

	if _, err := m.Add(testConfig("late", ProtocolModbusTCP)); !errors.Is(err, ErrClosed) {
		t.Errorf("Add() after Close error = %v, want ErrClosed", err)
	}

	// Idempotent.
	if err := m.Close(ctx); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}
