package config

import "flag"

// flagValues holds the command-line overrides.
//
// Supported flags:
//
//	-config string     YAML config file
//	-port int          listen port
//	-env string        development or production
//	-db string         database DSN or bolt file path
//	-db-driver string  sqlite, postgres or bolt
//	-log-level string  debug, info, warn or error
type flagValues struct {
	configFile string
	port       int
	env        string
	db         string
	dbDriver   string
	logLevel   string
}

func registerFlags(fs *flag.FlagSet) *flagValues {
	fl := &flagValues{}
	fs.StringVar(&fl.configFile, "config", "", "path to YAML config file")
	fs.IntVar(&fl.port, "port", 0, "port to listen on")
	fs.StringVar(&fl.env, "env", "", "environment (development or production)")
	fs.StringVar(&fl.db, "db", "", "database DSN or bolt file path")
	fs.StringVar(&fl.dbDriver, "db-driver", "", "database driver (sqlite, postgres, bolt)")
	fs.StringVar(&fl.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return fl
}

// apply copies only the flags that were given explicitly.
func (fl *flagValues) apply(config *Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			config.Port = fl.port
		case "env":
			config.Env = fl.env
		case "db":
			config.DB = fl.db
		case "db-driver":
			config.DBDriver = fl.dbDriver
		case "log-level":
			config.LogLevel = fl.logLevel
		}
	})
}
