package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		config   Config
		expected string
	}{
		{
			config:   Config{User: "a", Password: "b", Host: "c", Port: 5432, DBName: "d"},
			expected: "user=a password=b host=c port=5432 dbname=d sslmode=disable",
		},
		{
			config:   Config{User: "chat", Password: "", Host: "db", Port: 6432, DBName: "chat"},
			expected: "user=chat password= host=db port=6432 dbname=chat sslmode=disable",
		},
	}

	for _, tt := range tests {
		require.Equal(t, tt.expected, tt.config.DSN())
	}
}
