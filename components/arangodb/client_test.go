package arangodb

import (
	"strings"
	"testing"

	"github.com/benthosdev/benthos/v4/public/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spec() *service.ConfigSpec {
	return service.NewConfigSpec().Fields(ConfigFields()...)
}

func TestNewSessionFromConfig(t *testing.T) {
	conf, err := spec().ParseYAML(strings.TrimSpace(`
urls: [ "http://localhost:8529" ]
username: root
database: shop
`), service.GlobalEnvironment())
	require.NoError(t, err)
	assert.True(t, IsConfigured(conf))

	s, err := NewSessionFromConfig(conf)
	require.NoError(t, err)
	assert.Equal(t, "shop", s.CurrentDatabase())
}

func TestDefaultDatabase(t *testing.T) {
	conf, err := spec().ParseYAML(`urls: [ "http://localhost:8529" ]`, service.GlobalEnvironment())
	require.NoError(t, err)

	s, err := NewSessionFromConfig(conf)
	require.NoError(t, err)
	assert.Equal(t, "_system", s.CurrentDatabase())
}
