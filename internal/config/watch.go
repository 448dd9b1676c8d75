package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch reloads configuration whenever the config file changes and hands the
// fresh Config to onChange. It returns a stop function. Watching the parent
// directory survives editors that replace the file on save.
func Watch(logger zerolog.Logger, onChange func(*Config)) (func(), error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}
	configPath := filepath.Join(configDir, "config.yaml")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, err
	}

	log := logger.With().Str("component", "config-watch").Logger()

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != configPath {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load()
				if err != nil {
					log.Warn().Err(err).Msg("config reload failed, keeping previous")
					continue
				}
				log.Info().Str("path", configPath).Msg("config reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
