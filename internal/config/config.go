// Package config loads the service configuration from defaults, an
// optional config file, a .env file and PICOSD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/CristiGvl/picoSD/internal/card"
)

// EnvPrefix prefixes every environment override, e.g. PICOSD_SD_MOUNT_POINT
const EnvPrefix = "PICOSD"

// Config is the full service configuration
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	SD     SDConfig     `mapstructure:"sd"`
}

// ServerConfig configures the HTTP transport
type ServerConfig struct {
	Bind           string        `mapstructure:"bind"`
	Port           string        `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Address returns the listen address
func (s ServerConfig) Address() string {
	return s.Bind + ":" + s.Port
}

// SDConfig configures the card
type SDConfig struct {
	Enable              bool        `mapstructure:"enable"`
	Interface           string      `mapstructure:"interface"`
	Device              string      `mapstructure:"device"`
	MountPoint          string      `mapstructure:"mount_point"`
	FSType              string      `mapstructure:"fs_type"`
	MountData           string      `mapstructure:"mount_data"`
	FormatIfMountFailed bool        `mapstructure:"format_if_mount_failed"`
	Label               string      `mapstructure:"label"`
	MaxFiles            int         `mapstructure:"max_files"`
	Capacity            uint64      `mapstructure:"capacity"`
	SDMMC               SDMMCConfig `mapstructure:"sdmmc"`
	SPI                 SPIConfig   `mapstructure:"spi"`
}

// SDMMCConfig configures the SDMMC slot
type SDMMCConfig struct {
	BusWidth int `mapstructure:"bus_width"`
}

// SPIConfig holds the SPI pin assignment
type SPIConfig struct {
	PinMISO int `mapstructure:"pin_miso"`
	PinMOSI int `mapstructure:"pin_mosi"`
	PinCLK  int `mapstructure:"pin_clk"`
	PinCS   int `mapstructure:"pin_cs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.bind", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout", 10*time.Second)

	v.SetDefault("sd.enable", true)
	v.SetDefault("sd.interface", string(card.SDMMC))
	v.SetDefault("sd.device", "")
	v.SetDefault("sd.mount_point", "/sd")
	v.SetDefault("sd.fs_type", "vfat")
	v.SetDefault("sd.mount_data", "")
	v.SetDefault("sd.format_if_mount_failed", false)
	v.SetDefault("sd.label", "PICOSD")
	v.SetDefault("sd.max_files", 5)
	v.SetDefault("sd.capacity", 0)
	v.SetDefault("sd.sdmmc.bus_width", 4)
	v.SetDefault("sd.spi.pin_miso", card.DefaultSPIPins.MISO)
	v.SetDefault("sd.spi.pin_mosi", card.DefaultSPIPins.MOSI)
	v.SetDefault("sd.spi.pin_clk", card.DefaultSPIPins.CLK)
	v.SetDefault("sd.spi.pin_cs", card.DefaultSPIPins.CS)
}

// Load builds the configuration. configFile and envFile are optional; a
// missing envFile is ignored, a missing configFile is an error.
func Load(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Options converts the card section into card.Options
func (c SDConfig) Options() card.Options {
	return card.Options{
		Interface:           card.Interface(strings.ToLower(c.Interface)),
		MountPoint:          c.MountPoint,
		Device:              c.Device,
		FSType:              c.FSType,
		MountData:           c.MountData,
		FormatIfMountFailed: c.FormatIfMountFailed,
		Label:               c.Label,
		MaxFiles:            c.MaxFiles,
		Capacity:            c.Capacity,
		SDMMC:               card.SDMMCSlot{BusWidth: c.SDMMC.BusWidth},
		SPI: card.SPIPins{
			MISO: c.SPI.PinMISO,
			MOSI: c.SPI.PinMOSI,
			CLK:  c.SPI.PinCLK,
			CS:   c.SPI.PinCS,
		},
	}
}
