package config

import (
	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"
)

// SetupLogger configures the global logrus logger and prints the effective
// configuration at debug level.
func SetupLogger(cfg *Config) {
	if l, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(l)
	} else {
		log.Warnf("invalid log level %q, using %s", cfg.LogLevel, log.GetLevel())
	}
	log.SetFormatter(&nested.Formatter{
		HideKeys:    true,
		FieldsOrder: []string{"component", "category"},
	})

	log.Debugf("Current configuration: \n%# v", pretty.Formatter(cfg.Redacted()))
}
