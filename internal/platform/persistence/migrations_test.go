package persistence

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationSource(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "./migrations/postgres", want: "file://./migrations/postgres"},
		{in: "file:///srv/migrations", want: "file:///srv/migrations"},
		{in: "  ./m  ", want: "file://./m"},
		{in: "", wantErr: true},
		{in: "file://", wantErr: true},
	}
	for _, tt := range tests {
		got, err := migrationSource(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestRunMigrations_InputValidation(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.EqualError(t, RunMigrations(log, "postgres://test", ""), "migrations path cannot be empty")
	assert.EqualError(t, RunMigrations(log, "", "./migrations/postgres"), "database URL cannot be empty")
}
