package cli

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides (SKEIN_DB, SKEIN_WATCH_SETTLE, ...).
const EnvPrefix = "SKEIN"

// Config keys. Flags of the same name override file and environment values.
const (
	keyDB          = "db"
	keyFormat      = "format"
	keyVerbose     = "verbose"
	keyWatchSettle = "watch.settle"
	keyMetricsAddr = "watch.metrics_addr"
)

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	_ = v.BindPFlag(keyDB, flags.Lookup("db"))
	_ = v.BindPFlag(keyFormat, flags.Lookup("format"))
	_ = v.BindPFlag(keyVerbose, flags.Lookup("verbose"))
}

// loadConfig resolves global options from flags, SKEIN_* environment
// variables, and the config file, in that order of precedence.
//
// Without --config, ./.skein.yaml is read if it exists.
func loadConfig(opts *RootOptions) error {
	v := opts.v
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault(keyWatchSettle, "100ms")

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(".skein") // .yaml is implicit
		v.SetConfigType("yaml")
		v.AddConfigPath("./")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	opts.Database = v.GetString(keyDB)
	opts.Format = v.GetString(keyFormat)
	opts.Verbose = v.GetBool(keyVerbose)
	return nil
}

// watchSettle returns the configured burst settle time for watch.
func (o *RootOptions) watchSettle() time.Duration {
	return o.v.GetDuration(keyWatchSettle)
}

// metricsAddr returns the configured metrics listen address for watch.
func (o *RootOptions) metricsAddr() string {
	return o.v.GetString(keyMetricsAddr)
}
