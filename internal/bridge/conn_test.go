package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"pkt.systems/webshell/schema"
)

func servePair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := Pipe(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = a.Serve(ctx) }()
	go func() { _ = b.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func TestConnInvokeReply(t *testing.T) {
	a, b := servePair(t)
	b.Handle("echo", func(_ context.Context, payload json.RawMessage) (any, error) {
		var in string
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, err
		}
		return in + "!", nil
	})

	var out string
	if err := a.Invoke(context.Background(), "echo", "hi", &out); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out != "hi!" {
		t.Fatalf("unexpected reply %q", out)
	}
}

func TestConnInvokeRemoteError(t *testing.T) {
	a, b := servePair(t)
	b.Handle("fail", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("nope")
	})

	err := a.Invoke(context.Background(), "fail", nil, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Message != "nope" || remote.Channel != "fail" {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestConnInvokeUnknownChannel(t *testing.T) {
	a, _ := servePair(t)
	err := a.Invoke(context.Background(), "missing", nil, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Message != schema.ErrUnknownChannel.Error() {
		t.Fatalf("expected unknown channel error, got %v", err)
	}
}

func TestConnEventsKeepStreamOrder(t *testing.T) {
	a, b := servePair(t)
	got := make(chan int, 10)
	b.On("seq", func(_ context.Context, payload json.RawMessage) {
		var n int
		_ = json.Unmarshal(payload, &n)
		got <- n
	})
	for i := 0; i < 10; i++ {
		if err := a.Send(context.Background(), "seq", i); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	for i := 0; i < 10; i++ {
		select {
		case n := <-got:
			if n != i {
				t.Fatalf("expected %d, got %d", i, n)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestConnCloseFailsPendingInvoke(t *testing.T) {
	a, b := servePair(t)
	release := make(chan struct{})
	b.Handle("slow", func(context.Context, json.RawMessage) (any, error) {
		<-release
		return nil, nil
	})
	defer close(release)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Invoke(context.Background(), "slow", nil, nil)
	}()
	time.Sleep(20 * time.Millisecond)
	_ = a.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, schema.ErrBridgeClosed) {
			t.Fatalf("expected ErrBridgeClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("invoke did not return after close")
	}
	if err := a.Send(context.Background(), "x", nil); !errors.Is(err, schema.ErrBridgeClosed) {
		t.Fatalf("expected send after close to fail, got %v", err)
	}
}

func TestConnServeReturnsOnPeerClose(t *testing.T) {
	a, b := Pipe(nil)
	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background()) }()
	_ = b.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("serve did not return")
	}
	select {
	case <-a.Done():
	default:
		t.Fatalf("expected connection to be done")
	}
}
