package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructDatabaseURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		dbName   string
		expected string
	}{
		{
			name:     "no database name returns base",
			baseURL:  "postgres://u:p@localhost:5432/app",
			dbName:   "",
			expected: "postgres://u:p@localhost:5432/app",
		},
		{
			name:     "appends name and sslmode",
			baseURL:  "postgres://u:p@localhost:5432",
			dbName:   "happyfool",
			expected: "postgres://u:p@localhost:5432/happyfool?sslmode=disable",
		},
		{
			name:     "trailing slash",
			baseURL:  "postgres://u:p@localhost:5432/",
			dbName:   "happyfool",
			expected: "postgres://u:p@localhost:5432/happyfool?sslmode=disable",
		},
		{
			name:     "keeps existing query",
			baseURL:  "postgres://u:p@localhost:5432?connect_timeout=5",
			dbName:   "happyfool",
			expected: "postgres://u:p@localhost:5432/happyfool?connect_timeout=5&sslmode=disable",
		},
		{
			name:     "keeps explicit sslmode",
			baseURL:  "postgres://u:p@db:5432/?sslmode=require",
			dbName:   "happyfool",
			expected: "postgres://u:p@db:5432/happyfool?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConstructDatabaseURL(tt.baseURL, tt.dbName))
		})
	}
}
