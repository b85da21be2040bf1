package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

func TestStartMetricsServer_Endpoints(t *testing.T) {
	logger := log.WithField("test", "http")

	port := findFreePort(t)
	addr := fmt.Sprintf(":%d", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	srv := startMetricsServer(ctx, addr, logger, healthHandler)
	if srv == nil {
		t.Fatal("startMetricsServer should not return nil")
	}

	// Даём время на запуск
	time.Sleep(100 * time.Millisecond)

	endpoints := []string{
		fmt.Sprintf("http://localhost:%d/metrics", port),
		fmt.Sprintf("http://localhost:%d/healthz", port),
		fmt.Sprintf("http://localhost:%d/readyz", port),
		fmt.Sprintf("http://localhost:%d/livez", port),
	}

	for _, url := range endpoints {
		resp, err := http.Get(url)
		if err != nil {
			t.Errorf("failed to get %s: %v", url, err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s returned status %d, expected 200", url, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// /livez отвечает телом "ok".
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/livez", port))
	if err != nil {
		t.Fatalf("failed to get /livez: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("expected 'ok' from /livez, got '%s'", string(body))
	}
}

func TestStartMetricsServer_Shutdown(t *testing.T) {
	logger := log.WithField("test", "http-shutdown")

	port := findFreePort(t)
	addr := fmt.Sprintf(":%d", port)

	ctx, cancel := context.WithCancel(context.Background())

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	startMetricsServer(ctx, addr, logger, healthHandler)

	time.Sleep(100 * time.Millisecond)

	url := fmt.Sprintf("http://localhost:%d/livez", port)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("server should be running: %v", err)
	}
	resp.Body.Close()

	// Отмена контекста останавливает сервер.
	cancel()
	time.Sleep(200 * time.Millisecond)

	_, err = http.Get(url)
	if err == nil {
		t.Error("server should be stopped after context cancellation")
	}
}

func TestShutdownHTTP_NilServer(_ *testing.T) {
	logger := log.WithField("test", "http-nil")

	// Не должно паниковать
	shutdownHTTP(nil, logger)
}

func TestShutdownHTTP_WithServer(t *testing.T) {
	logger := log.WithField("test", "http-shutdown-func")

	port := findFreePort(t)
	addr := fmt.Sprintf(":%d", port)

	mux := http.NewServeMux()
	mux.HandleFunc("/test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("test"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		_ = srv.ListenAndServe()
	}()

	time.Sleep(100 * time.Millisecond)

	url := fmt.Sprintf("http://localhost:%d/test", port)
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("server should be running: %v", err)
	}
	resp.Body.Close()

	shutdownHTTP(srv, logger)

	time.Sleep(100 * time.Millisecond)
	_, err = http.Get(url)
	if err == nil {
		t.Error("server should be stopped after shutdownHTTP")
	}
}

func TestShutdownOutboxWorker_NilCancel(_ *testing.T) {
	shutdownOutboxWorker(nil, nil, log.WithField("test", "outbox-shutdown"))
}

func TestShutdownOutboxWorker_Stopped(t *testing.T) {
	cancelCalled := false
	done := make(chan struct{})
	close(done)

	shutdownOutboxWorker(func() { cancelCalled = true }, done, log.WithField("test", "outbox-shutdown"))

	if !cancelCalled {
		t.Fatal("expected cancel func to be called")
	}
}

// findFreePort находит свободный порт для тестов
func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}
