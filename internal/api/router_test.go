// internal/api/router_test.go
package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"oikos-server/internal/common/config"
)

// ========================== CORS Policy Tests

func TestCorsPolicy_ExplicitOriginsCarryCredentials(t *testing.T) {
	origins, credentials := corsPolicy(config.ServerConfig{
		AllowedOrigins: []string{"https://app.oikos.example"},
	})

	assert.Equal(t, []string{"https://app.oikos.example"}, origins)
	assert.True(t, credentials)
}

func TestCorsPolicy_WildcardFallbackDropsCredentials(t *testing.T) {
	// Browsers reject Access-Control-Allow-Origin: * together with
	// credentials, so the open fallback must not request them.
	origins, credentials := corsPolicy(config.ServerConfig{})

	assert.Equal(t, []string{"*"}, origins)
	assert.False(t, credentials)
}
