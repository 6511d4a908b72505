// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xataio/tanker/cmd/flags"
	"github.com/xataio/tanker/pkg/schema"
	"github.com/xataio/tanker/pkg/scope"
)

// fileConfig mirrors the config file format: a db_uri, the table schema
// (in the same record shape pkg/schema.Load parses), per-table read/write
// ACL filters, and any other top-level key, collected into Rest for use as
// `{key}` argument placeholders.
type fileConfig struct {
	DBURI    string            `yaml:"db_uri"`
	Schema   yaml.Node         `yaml:"schema"`
	ACLRead  map[string]string `yaml:"acl-read"`
	ACLWrite map[string]string `yaml:"acl-write"`
	Rest     map[string]any    `yaml:",inline"`
}

// loadConfig reads the config file named by --config and builds the
// scope.Config every subcommand connects with.
func loadConfig() (scope.Config, error) {
	path := flags.ConfigFile()

	data, err := os.ReadFile(path)
	if err != nil {
		return scope.Config{}, ConfigFileError{Path: path, Err: err}
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return scope.Config{}, ConfigFileError{Path: path, Err: err}
	}

	schemaBytes, err := yaml.Marshal(&fc.Schema)
	if err != nil {
		return scope.Config{}, ConfigFileError{Path: path, Err: err}
	}

	reg, err := schema.Load(schemaBytes)
	if err != nil {
		return scope.Config{}, ConfigFileError{Path: path, Err: err}
	}

	var logger scope.Logger
	if flags.Verbose() {
		logger = scope.PtermLogger{Verbose: true}
	} else {
		logger = scope.PtermLogger{}
	}

	return scope.Config{
		DBURI:    fc.DBURI,
		Registry: reg,
		ACLRead:  fc.ACLRead,
		ACLWrite: fc.ACLWrite,
		Args:     fc.Rest,
		Logger:   logger,
	}, nil
}

// ConfigFileError reports a config file that could not be read or parsed.
type ConfigFileError struct {
	Path string
	Err  error
}

func (e ConfigFileError) Error() string {
	return fmt.Sprintf("tanker: reading config %q: %s", e.Path, e.Err)
}

func (e ConfigFileError) Unwrap() error { return e.Err }
