package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch re-reads the config file on change and hands valid results to onChange.
// Invalid edits are logged and ignored. Without a config file Watch does nothing.
func (l *Loader) Watch(log logrus.FieldLogger, onChange func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		log.Info("no config file in use, hot reload disabled")
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		log := log.WithField("change", e.String())
		cfg, err := l.decode()
		if err != nil {
			log.WithError(err).Error("config reload rejected")
			return
		}
		log.Info("config change and reload it")
		onChange(cfg)
	})
	l.v.WatchConfig()
}
