// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/panelshell/lib/codec"
	"github.com/bureau-foundation/panelshell/lib/testutil"
)

const testTimeout = 5 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sizeArgs struct {
	Width  int `cbor:"width"`
	Height int `cbor:"height"`
}

type callResult struct {
	body codec.RawMessage
	err  error
}

// newEchoService returns a service with members exercising the reply,
// error and signal paths.
func newEchoService(name string) *Service {
	service := NewService(name, testLogger())
	service.Handle("Area", func(_ context.Context, _ *Peer, body codec.RawMessage) (any, error) {
		var args sizeArgs
		if err := Decode(body, &args); err != nil {
			return nil, err
		}
		return map[string]int{"area": args.Width * args.Height}, nil
	})
	service.Handle("Fail", func(context.Context, *Peer, codec.RawMessage) (any, error) {
		return nil, errors.New("refused")
	})
	service.Handle("Ping", func(context.Context, *Peer, codec.RawMessage) (any, error) {
		return nil, nil
	})
	return service
}

func call(t *testing.T, endpoint Endpoint, member string, args any) callResult {
	t.Helper()
	results := make(chan callResult, 1)
	endpoint.Call(member, args, func(body codec.RawMessage, err error) {
		results <- callResult{body: body, err: err}
	})
	return testutil.RequireReceive(t, results, testTimeout, "reply to %s", member)
}

// --- Socket bus ---

func startSocketService(t *testing.T, bus *SocketBus, service *Service) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := bus.Serve(ctx, service); err != nil {
			t.Errorf("Serve: %v", err)
		}
	}()
	testutil.WaitForSocket(t, bus.SocketPath(service.Name()), testTimeout)
	stop := func() {
		cancel()
		testutil.RequireClosed(t, done, testTimeout, "Serve return")
	}
	t.Cleanup(stop)
	var once sync.Once
	return func() { once.Do(stop) }
}

func TestOpenSocketBusMissingDirectory(t *testing.T) {
	_, err := OpenSocketBus(filepath.Join(testutil.SocketDir(t), "absent"), testLogger())
	if !errors.Is(err, ErrNoSessionBus) {
		t.Fatalf("OpenSocketBus: got %v, want ErrNoSessionBus", err)
	}
	_, err = OpenSocketBus("", testLogger())
	if !errors.Is(err, ErrNoSessionBus) {
		t.Fatalf("OpenSocketBus(\"\"): got %v, want ErrNoSessionBus", err)
	}
}

func TestSocketCallReplyAndError(t *testing.T) {
	bus, err := OpenSocketBus(testutil.SocketDir(t), testLogger())
	if err != nil {
		t.Fatalf("OpenSocketBus: %v", err)
	}
	service := newEchoService("status")
	startSocketService(t, bus, service)

	endpoint, err := bus.Resolve(context.Background(), "status")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer endpoint.Close()

	if endpoint.Owner() != service.Owner() {
		t.Errorf("Owner: got %q, want %q", endpoint.Owner(), service.Owner())
	}

	result := call(t, endpoint, "Area", sizeArgs{Width: 600, Height: 400})
	if result.err != nil {
		t.Fatalf("Area: %v", result.err)
	}
	var reply struct {
		Area int `cbor:"area"`
	}
	if err := Decode(result.body, &reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if reply.Area != 240000 {
		t.Errorf("area: got %d, want 240000", reply.Area)
	}

	result = call(t, endpoint, "Fail", nil)
	var callError *CallError
	if !errors.As(result.err, &callError) {
		t.Fatalf("Fail: got %v, want *CallError", result.err)
	}
	if callError.Member != "Fail" || callError.Message != "refused" {
		t.Errorf("CallError: got %+v", callError)
	}

	result = call(t, endpoint, "Missing", nil)
	if !errors.As(result.err, &callError) {
		t.Fatalf("Missing: got %v, want *CallError", result.err)
	}
}

func TestSocketResolveWithoutOwner(t *testing.T) {
	bus, err := OpenSocketBus(testutil.SocketDir(t), testLogger())
	if err != nil {
		t.Fatalf("OpenSocketBus: %v", err)
	}
	_, err = bus.Resolve(context.Background(), "nobody")
	if !errors.Is(err, ErrServiceUnknown) {
		t.Fatalf("Resolve: got %v, want ErrServiceUnknown", err)
	}
	_, err = bus.Resolve(context.Background(), "../escape")
	if !errors.Is(err, ErrInvalidName) {
		t.Fatalf("Resolve bad name: got %v, want ErrInvalidName", err)
	}
}

func TestSocketSignalsReachEveryPeer(t *testing.T) {
	bus, err := OpenSocketBus(testutil.SocketDir(t), testLogger())
	if err != nil {
		t.Fatalf("OpenSocketBus: %v", err)
	}
	service := newEchoService("launcher")
	startSocketService(t, bus, service)

	signals := make(chan Signal, 4)
	for range 2 {
		endpoint, err := bus.Resolve(context.Background(), "launcher")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		defer endpoint.Close()
		endpoint.OnSignal(func(signal Signal) { signals <- signal })
		// A completed call proves the service registered this peer.
		if result := call(t, endpoint, "Ping", nil); result.err != nil {
			t.Fatalf("Ping: %v", result.err)
		}
	}

	if err := service.Emit("RequestTooltip", map[string]string{"text": "apps"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	for range 2 {
		signal := testutil.RequireReceive(t, signals, testTimeout, "signal")
		var payload map[string]string
		if err := signal.Decode(&payload); err != nil {
			t.Fatalf("decoding signal: %v", err)
		}
		if signal.Member != "RequestTooltip" || payload["text"] != "apps" {
			t.Errorf("signal: got %s %v", signal.Member, payload)
		}
	}
}

func TestSocketEndpointDoneWhenServiceStops(t *testing.T) {
	bus, err := OpenSocketBus(testutil.SocketDir(t), testLogger())
	if err != nil {
		t.Fatalf("OpenSocketBus: %v", err)
	}
	stop := startSocketService(t, bus, newEchoService("network"))

	endpoint, err := bus.Resolve(context.Background(), "network")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	stop()
	testutil.RequireClosed(t, endpoint.Done(), testTimeout, "endpoint Done after service stop")

	// Calls on a dead endpoint are dropped, never answered.
	answered := make(chan struct{}, 1)
	endpoint.Call("Ping", nil, func(codec.RawMessage, error) { answered <- struct{}{} })
	select {
	case <-answered:
		t.Fatal("reply delivered on dead endpoint")
	default:
	}
}

func TestSocketWatchOwnerReportsRestart(t *testing.T) {
	bus, err := OpenSocketBus(testutil.SocketDir(t), testLogger())
	if err != nil {
		t.Fatalf("OpenSocketBus: %v", err)
	}
	changes := make(chan OwnerChange, 8)
	cancel, err := bus.WatchOwner("pasteboard", func(change OwnerChange) { changes <- change })
	if err != nil {
		t.Fatalf("WatchOwner: %v", err)
	}
	defer cancel()

	stop := startSocketService(t, bus, newEchoService("pasteboard"))
	if change := testutil.RequireReceive(t, changes, testTimeout, "appearance"); !change.Appeared {
		t.Fatalf("first change: got %+v, want appeared", change)
	}

	stop()
	if change := testutil.RequireReceive(t, changes, testTimeout, "vanish"); change.Appeared {
		t.Fatalf("second change: got %+v, want vanished", change)
	}

	restarted := newEchoService("pasteboard")
	startSocketService(t, bus, restarted)
	if change := testutil.RequireReceive(t, changes, testTimeout, "reappearance"); !change.Appeared {
		t.Fatalf("third change: got %+v, want appeared", change)
	}

	endpoint, err := bus.Resolve(context.Background(), "pasteboard")
	if err != nil {
		t.Fatalf("Resolve after restart: %v", err)
	}
	defer endpoint.Close()
	if endpoint.Owner() != restarted.Owner() {
		t.Errorf("Owner after restart: got %q, want %q", endpoint.Owner(), restarted.Owner())
	}
}

// silentService listens on the socket for name and accepts
// connections. With hello set it announces itself and then never reads;
// otherwise it never writes anything.
func silentService(t *testing.T, bus *SocketBus, name string, hello bool) {
	t.Helper()
	listener, err := net.Listen("unix", bus.SocketPath(name))
	if err != nil {
		t.Fatalf("listening for %s: %v", name, err)
	}
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		listener.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close()
		}
	})
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
			if hello {
				codec.NewEncoder(conn).Encode(Frame{Kind: FrameHello, Owner: name + "-stalled"})
			}
		}
	}()
}

func TestSocketResolveStopsAtContextDeadline(t *testing.T) {
	bus, err := OpenSocketBus(testutil.SocketDir(t), testLogger())
	if err != nil {
		t.Fatalf("OpenSocketBus: %v", err)
	}
	silentService(t, bus, "mute", false)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now() //nolint:realclock measures a real socket wait
	_, err = bus.Resolve(ctx, "mute")
	if err == nil {
		t.Fatal("Resolve of a service that never says hello: got nil error")
	}
	if elapsed := time.Since(start); elapsed >= helloTimeout {
		t.Errorf("Resolve returned after %v, want well before %v", elapsed, helloTimeout)
	}
}

func TestSocketResolveStopsWhenCancelled(t *testing.T) {
	bus, err := OpenSocketBus(testutil.SocketDir(t), testLogger())
	if err != nil {
		t.Fatalf("OpenSocketBus: %v", err)
	}
	silentService(t, bus, "mute", false)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := bus.Resolve(ctx, "mute")
		result <- err
	}()
	time.Sleep(50 * time.Millisecond) //nolint:realclock let the dial reach the hello wait
	cancel()
	if err := testutil.RequireReceive(t, result, helloTimeout/2, "Resolve after cancel"); err == nil {
		t.Fatal("cancelled Resolve: got nil error")
	}
}

func TestSocketCallsNeverBlockOnStalledService(t *testing.T) {
	bus, err := OpenSocketBus(testutil.SocketDir(t), testLogger())
	if err != nil {
		t.Fatalf("OpenSocketBus: %v", err)
	}
	silentService(t, bus, "stalled", true)

	endpoint, err := bus.Resolve(context.Background(), "stalled")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer endpoint.Close()

	// Far more data than the socket buffer and the outbox hold
	// together. Every Call must still return promptly.
	blob := make([]byte, 64<<10)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for range 4 * outboxSize {
			select {
			case <-endpoint.Done():
				return
			default:
			}
			endpoint.Call("Store", blob, Discard)
		}
	}()
	testutil.RequireClosed(t, finished, testTimeout, "calls to a stalled service")
	testutil.RequireClosed(t, endpoint.Done(), testTimeout, "stalled endpoint dropped")
}

// --- Memory bus ---

func TestMemoryCallAndUnexport(t *testing.T) {
	memory := NewMemory(testLogger())
	service := newEchoService("status")
	unexport := memory.Export(service)

	endpoint, err := memory.Resolve(context.Background(), "status")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	result := call(t, endpoint, "Area", sizeArgs{Width: 3, Height: 4})
	if result.err != nil {
		t.Fatalf("Area: %v", result.err)
	}

	unexport()
	testutil.RequireClosed(t, endpoint.Done(), testTimeout, "endpoint Done after unexport")

	if _, err := memory.Resolve(context.Background(), "status"); !errors.Is(err, ErrServiceUnknown) {
		t.Fatalf("Resolve after unexport: got %v, want ErrServiceUnknown", err)
	}
}

func TestMemoryReplacementDisconnectsPreviousOwner(t *testing.T) {
	memory := NewMemory(testLogger())
	changes := make(chan OwnerChange, 8)
	cancel, _ := memory.WatchOwner("status", func(change OwnerChange) { changes <- change })
	defer cancel()

	memory.Export(newEchoService("status"))
	endpoint, err := memory.Resolve(context.Background(), "status")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	replacement := newEchoService("status")
	memory.Export(replacement)
	testutil.RequireClosed(t, endpoint.Done(), testTimeout, "old endpoint Done")

	for range 2 {
		if change := testutil.RequireReceive(t, changes, testTimeout, "owner change"); !change.Appeared {
			t.Fatalf("change: got %+v, want appeared", change)
		}
	}

	fresh, err := memory.Resolve(context.Background(), "status")
	if err != nil {
		t.Fatalf("Resolve replacement: %v", err)
	}
	if fresh.Owner() != replacement.Owner() {
		t.Errorf("Owner: got %q, want %q", fresh.Owner(), replacement.Owner())
	}
}

func TestServiceDisconnectHook(t *testing.T) {
	memory := NewMemory(testLogger())
	service := newEchoService("status")
	gone := make(chan uint64, 1)
	service.OnDisconnect(func(peer *Peer) { gone <- peer.ID() })
	memory.Export(service)

	endpoint, err := memory.Resolve(context.Background(), "status")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if result := call(t, endpoint, "Ping", nil); result.err != nil {
		t.Fatalf("Ping: %v", result.err)
	}
	endpoint.Close()
	if id := testutil.RequireReceive(t, gone, testTimeout, "disconnect hook"); id == 0 {
		t.Fatal("disconnect hook got zero peer id")
	}
}

func TestNewServiceRejectsInvalidName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewService accepted an invalid name")
		}
	}()
	NewService("has/slash", testLogger())
}
