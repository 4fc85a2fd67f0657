package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLogLevel maps a LOG_LEVEL value onto a logrus level, defaulting to info
func ParseLogLevel(level string) log.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return log.DebugLevel
	case "WARNING", "WARN":
		return log.WarnLevel
	case "ERROR":
		return log.ErrorLevel
	case "CRITICAL":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// SetupLogging configures the global logrus logger: console always, rotating file optionally
func SetupLogging(cfg *Config) {
	log.SetLevel(ParseLogLevel(cfg.LogLevel))
	log.SetFormatter(&nested.Formatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FieldsOrder:     []string{"module", "session"},
		HideKeys:        false,
	})

	if !cfg.EnableLogFile {
		log.SetOutput(os.Stdout)
		log.Info("File logging disabled (console only)")
		log.Infof("Logging initialized at level: %s", log.GetLevel())
		return
	}

	if dir := filepath.Dir(cfg.LogFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warnf("Could not create log directory %s: %v", dir, err)
		}
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotating))
	log.Infof("File logging enabled: %s", cfg.LogFile)
	log.Infof("Logging initialized at level: %s", log.GetLevel())
}
