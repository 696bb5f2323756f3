package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHostForDocker_NonLoopbackUnchanged(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"mydb.example.com", "mydb.example.com"},
		{"192.168.1.100", "192.168.1.100"},
		{"host.docker.internal", "host.docker.internal"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ResolveHostForDocker(tt.input))
	}
}

func TestRewriteURIHost(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"mongo localhost with port", "mongodb://localhost:27017/?ssl=false", "mongodb://host.docker.internal:27017/?ssl=false"},
		{"loopback ip without port", "postgres://user:pw@127.0.0.1/db", "postgres://user:pw@host.docker.internal/db"},
		{"remote host untouched", "mongodb://acct.mongo.cosmos.azure.com:10255/", "mongodb://acct.mongo.cosmos.azure.com:10255/"},
		{"no host", "not a uri", "not a uri"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rewriteURIHost(tt.input))
		})
	}
}

func TestResolveURIForDocker_Empty(t *testing.T) {
	assert.Equal(t, "", ResolveURIForDocker(""))
}
