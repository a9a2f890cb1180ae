package pg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsNoRows(t *testing.T) {
	if !isNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped no rows")
	}
	if isNoRows(errors.New("boom")) {
		t.Fatal("unexpected no rows")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"primary key", &pgconn.PgError{Code: "23505", ConstraintName: "snippets_pkey"}, true},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "snippets_pkey"}), true},
		{"other table", &pgconn.PgError{Code: "23505", ConstraintName: "user_data_pkey"}, false},
		{"other code", &pgconn.PgError{Code: "23503", ConstraintName: "snippets_pkey"}, false},
		{"not pg", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err, "snippets"); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}
