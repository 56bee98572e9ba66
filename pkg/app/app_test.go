package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travelcore/pkg/claim"
	"travelcore/pkg/client"
	"travelcore/pkg/config"
	"travelcore/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.err
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "stores reachable", wantStatus: http.StatusOK},
		{name: "store down", err: errors.New("connection refused"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(&mockPinger{err: tt.err}, logger.Discard()).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Log:             logger.Discard(),
		StoreDriver:     config.StoreMemory,
		LockDriver:      config.LockMemory,
		LockWaitTimeout: time.Second,
		LockTTL:         5 * time.Second,
	}
}

func TestNewLocker(t *testing.T) {
	cfg := testConfig()

	locker, err := NewLocker(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := locker.(*claim.MemoryLocker); !ok {
		t.Errorf("expected memory locker, got %T", locker)
	}

	cfg.LockDriver = config.LockRedis
	cfg.Client = client.NewClient()
	if _, err := NewLocker(cfg); err == nil {
		t.Error("expected error when redis client was never opened")
	}
}

func TestNewTransactionManager_Memory(t *testing.T) {
	tx := NewTransactionManager(testConfig())

	ran := false
	if err := tx.ExecuteTransaction(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	}); err != nil || !ran {
		t.Errorf("transaction did not run: %v", err)
	}
}

func TestNewPublisher_Disabled(t *testing.T) {
	publisher, closeFn, err := NewPublisher(testConfig(), "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()

	if publisher == nil {
		t.Fatal("expected a noop publisher")
	}
}

func TestNewCoordinator_MemoryDrivers(t *testing.T) {
	coord, closeFn, err := NewCoordinator(testConfig(), "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closeFn()

	if coord.Locker == nil || coord.Tx == nil || coord.Events == nil || coord.Metrics == nil {
		t.Errorf("coordinator not fully wired: %+v", coord)
	}
}
