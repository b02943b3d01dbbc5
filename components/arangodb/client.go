// Package arangodb holds the connection settings shared by the arangodb components.
package arangodb

import (
	"fmt"

	"github.com/benthosdev/benthos/v4/public/service"
	"github.com/shono-io/arangosh/session"
	"github.com/shono-io/arangosh/transport"
)

func IsConfigured(conf *service.ParsedConfig) bool {
	_, err := conf.FieldStringList("urls")
	return err == nil
}

func ConfigFields() []*service.ConfigField {
	return []*service.ConfigField{
		service.NewStringListField("urls").
			Description("The endpoints of the arangodb servers to connect to.").
			Example([]string{"http://localhost:8529"}),
		service.NewStringField("username").Default(""),
		service.NewStringField("password").Default(""),
		service.NewStringField("database").Default("_system"),
	}
}

// NewSessionFromConfig connects to arangodb using the fields from ConfigFields.
func NewSessionFromConfig(conf *service.ParsedConfig) (*session.Session, error) {
	urls, err := conf.FieldStringList("urls")
	if err != nil {
		return nil, fmt.Errorf("failed to get urls field: %w", err)
	}

	username, err := conf.FieldString("username")
	if err != nil {
		return nil, fmt.Errorf("failed to get username field: %w", err)
	}

	password, err := conf.FieldString("password")
	if err != nil {
		return nil, fmt.Errorf("failed to get password field: %w", err)
	}

	database, err := conf.FieldString("database")
	if err != nil {
		return nil, fmt.Errorf("failed to get database field: %w", err)
	}

	conn, err := transport.Dial(transport.Config{
		Endpoints: urls,
		Username:  username,
		Password:  password,
		Database:  database,
	})
	if err != nil {
		return nil, err
	}

	return session.New(conn), nil
}
