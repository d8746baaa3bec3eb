package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Andi3172/fullstack-tic-project/pkg/observability/logger"
)

type mockLogger struct{}

func (mockLogger) Debug(string, ...any)                      {}
func (mockLogger) Info(string, ...any)                       {}
func (mockLogger) Warn(string, ...any)                       {}
func (mockLogger) Error(string, ...any)                      {}
func (mockLogger) With(...any) logger.Logger                 { return mockLogger{} }
func (mockLogger) WithContext(context.Context) logger.Logger { return mockLogger{} }

func TestNewAdapterRequiresURL(t *testing.T) {
	if _, err := NewAdapter(Config{}, mockLogger{}); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func newMockAdapter(t *testing.T, cfg Config) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	mock.ExpectPing()
	adapter, err := newAdapter(db, cfg, mockLogger{})
	if err != nil {
		t.Fatalf("newAdapter() error = %v", err)
	}
	return adapter, mock
}

func TestAdapter_PingFailureClosesPool(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	if _, err := newAdapter(db, Config{URL: "postgres://x"}, mockLogger{}); err == nil {
		t.Fatal("expected ping error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestAdapter_HealthCheck(t *testing.T) {
	adapter, mock := newMockAdapter(t, Config{})
	mock.ExpectPing()
	if err := adapter.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	mock.ExpectPing().WillReturnError(errors.New("down"))
	if err := adapter.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check failure")
	}
}

func TestAdapter_ExecAndQuery(t *testing.T) {
	adapter, mock := newMockAdapter(t, Config{QueryTimeout: time.Second})

	mock.ExpectExec("UPDATE orders").WillReturnResult(sqlmock.NewResult(0, 1))
	if _, err := adapter.ExecContext(context.Background(), "UPDATE orders SET status = $1", "shipped"); err != nil {
		t.Fatalf("ExecContext() error = %v", err)
	}

	mock.ExpectQuery("SELECT id FROM orders").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("order-1").AddRow("order-2"))
	rows, err := adapter.QueryContext(context.Background(), "SELECT id FROM orders")
	if err != nil {
		t.Fatalf("QueryContext() error = %v", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatalf("scan: %v", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want 2 rows", ids)
	}

	mock.ExpectQuery("SELECT version").WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(3)))
	var version int64
	if err := adapter.QueryRowContext(context.Background(), "SELECT version FROM orders").Scan(&version); err != nil {
		t.Fatalf("QueryRowContext() error = %v", err)
	}
	if version != 3 {
		t.Fatalf("version = %d, want 3", version)
	}

	mock.ExpectClose()
	if err := adapter.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

func TestAdapter_QueryTimeoutKeepsCallerDeadline(t *testing.T) {
	adapter := &Adapter{config: Config{QueryTimeout: time.Hour}}
	deadline := time.Now().Add(time.Minute)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	got, release := adapter.withQueryTimeout(ctx)
	defer release()
	if d, _ := got.Deadline(); !d.Equal(deadline) {
		t.Fatalf("deadline = %v, want caller deadline %v", d, deadline)
	}

	bounded, releaseBounded := adapter.withQueryTimeout(context.Background())
	defer releaseBounded()
	if _, ok := bounded.Deadline(); !ok {
		t.Fatal("expected the query timeout to apply")
	}
}
