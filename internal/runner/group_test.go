package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"
)

type funcService struct {
	name string
	run  func(context.Context) error
}

func (f funcService) Name() string                  { return f.name }
func (f funcService) Run(ctx context.Context) error { return f.run(ctx) }

func waitForCancel(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func TestGroup_FirstFailureCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	g := Group{
		funcService{"waiter", waitForCancel},
		funcService{"failer", func(context.Context) error { return boom }},
	}

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v", err)
		}
		if !strings.Contains(err.Error(), "failer: boom") {
			t.Errorf("err does not name the service: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("group did not stop")
	}
}

func TestGroup_CollectsAllErrors(t *testing.T) {
	g := Group{
		funcService{"a", func(context.Context) error { return errors.New("a failed") }},
		funcService{"b", func(ctx context.Context) error {
			<-ctx.Done()
			return errors.New("b failed on shutdown")
		}},
	}

	err := g.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"a: a failed", "b: b failed on shutdown"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestGroup_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := Group{funcService{"waiter", waitForCancel}}

	go cancel()
	if err := g.Run(ctx); err != nil {
		t.Errorf("err = %v", err)
	}
}

func TestHTTPServer_ShutsDownOnCancel(t *testing.T) {
	srv := &HTTPServer{
		Server: &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("err = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
