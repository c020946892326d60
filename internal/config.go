package internal

import (
	"fmt"
	"net"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/api"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/bot"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/ffmpeg"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/history"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/processing"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/provision"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/telegram"
)

// CrossautConfig is the top-level user configuration, supplied via a YAML
// file and/or environment variables.
type CrossautConfig struct {
	Telegram   telegram.Config   `yaml:"telegram"`
	Bot        bot.Config        `yaml:"bot"`
	Provision  provision.Config  `yaml:"provision"`
	Ffmpeg     ffmpeg.Config     `yaml:"ffmpeg"`
	Processing processing.Config `yaml:"processing"`
	History    history.Config    `yaml:"history"`
	Api        api.RestConfig    `yaml:"api"`
}

// LoadFromFile reads the YAML configuration at configPath, falling back to
// environment variables only when no file exists at that path.
func (config *CrossautConfig) LoadFromFile(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(config); err != nil {
			return fmt.Errorf("failed to load configuration from environment - %v", err.Error())
		}
	} else if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s - %v", configPath, err.Error())
	}

	config.applyPortOverride()
	return nil
}

// applyPortOverride folds the PORT environment variable (injected by most
// hosting platforms) into the API bind address, replacing whatever port the
// configured address carries.
func (config *CrossautConfig) applyPortOverride() {
	port := os.Getenv("PORT")
	if port == "" {
		return
	}

	host, _, err := net.SplitHostPort(config.Api.HostAddr)
	if err != nil {
		host = config.Api.HostAddr
	}

	config.Api.HostAddr = net.JoinHostPort(host, port)
}
