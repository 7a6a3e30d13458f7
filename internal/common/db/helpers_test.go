package db

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
)

type stubQuerier struct{ name string }

func (s *stubQuerier) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	return nil, nil
}
func (s *stubQuerier) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	return nil
}
func (s *stubQuerier) Exec(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return nil, nil
}

type stubDatabase struct{ stubQuerier }

func (s *stubDatabase) Transaction(ctx context.Context, fn func(tx Transaction) error) error {
	return nil
}
func (s *stubDatabase) Ping(ctx context.Context) error { return nil }
func (s *stubDatabase) Close() error                   { return nil }

type stubTransaction struct{ stubQuerier }

func (s *stubTransaction) Commit() error   { return nil }
func (s *stubTransaction) Rollback() error { return nil }

func TestGetQuerier(t *testing.T) {
	t.Parallel()
	database := &stubDatabase{stubQuerier{name: "db"}}
	tx := &stubTransaction{stubQuerier{name: "tx"}}

	if got := GetQuerier(database, tx); got != tx {
		t.Fatalf("expected transaction querier when tx is set")
	}
	if got := GetQuerier(database, nil); got != database {
		t.Fatalf("expected database querier when tx is nil")
	}
}

func TestIsNoRows(t *testing.T) {
	t.Parallel()
	if !IsNoRows(sql.ErrNoRows) {
		t.Fatal("expected sql.ErrNoRows to match")
	}
	if !IsNoRows(fmt.Errorf("wrapped: %w", sql.ErrNoRows)) {
		t.Fatal("expected wrapped sql.ErrNoRows to match")
	}
	if IsNoRows(fmt.Errorf("other failure")) {
		t.Fatal("unrelated error matched")
	}
}
