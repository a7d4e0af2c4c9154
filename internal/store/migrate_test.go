package store

import (
	"strings"
	"testing"
)

func TestMigrationURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "postgres://u:p@localhost:5432/ledger?sslmode=disable", want: "pgx5://u:p@localhost:5432/ledger?sslmode=disable"},
		{in: "postgresql://u@db/ledger", want: "pgx5://u@db/ledger"},
		{in: "pgx5://already/converted", want: "pgx5://already/converted"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := migrationURL(tt.in); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	if up == 0 || up != down {
		t.Fatalf("expected matching up/down migrations, got up=%d down=%d", up, down)
	}
}
