package api

import (
	"os"
	"syscall"
	"testing"
	"time"
)

func TestRunStopsGracefullyOnSignal(t *testing.T) {
	s := NewServer("127.0.0.1:0", NewHandlers(nil, nil, nil, ""))

	done := make(chan error, 1)
	go func() { done <- s.Run() }()

	// Give the listener and the signal handler time to install.
	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to send SIGTERM: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after SIGTERM")
	}
}
