package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Flags holds the command-line overrides for the server. Only flags the user
// actually set are applied, so the environment keeps precedence otherwise.
type Flags struct {
	ConfigFile string
	Host       string
	Port       string
	Store      string
	MongoURI   string
	SQLitePath string
	LogLevel   string
}

func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "path to a YAML config file (overrides CONFIG_FILE)")
	fs.StringVar(&f.Host, "host", "", "interface to listen on")
	fs.StringVarP(&f.Port, "port", "p", "", "port to listen on (overrides PORT)")
	fs.StringVar(&f.Store, "store", "", "store driver: mongo, postgres or sqlite")
	fs.StringVar(&f.MongoURI, "mongo-uri", "", "MongoDB connection string")
	fs.StringVar(&f.SQLitePath, "sqlite-path", "", "SQLite database file")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	return f
}

func (f *Flags) Apply(fs *pflag.FlagSet, c *Config) error {
	if fs.Changed("host") {
		c.Server.Host = f.Host
	}
	if fs.Changed("port") {
		c.Server.Port = f.Port
	}
	if fs.Changed("store") {
		c.Store.Driver = strings.ToLower(f.Store)
	}
	if fs.Changed("mongo-uri") {
		c.Mongo.URI = f.MongoURI
	}
	if fs.Changed("sqlite-path") {
		c.Database.SQLitePath = f.SQLitePath
	}
	if fs.Changed("log-level") {
		c.Log.Level = f.LogLevel
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
