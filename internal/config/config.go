package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/viper"
)

type Config struct {
	Datadir           string
	HTTPPort          uint32
	HubID             string
	HubPrivateKey     string
	AdjudicatorURL    string
	SweepInterval     int64
	ChainPollInterval int64
	LogLevel          int
}

var (
	Datadir           = "DATADIR"
	HTTPPort          = "HTTP_PORT"
	HubID             = "HUB_ID"
	HubPrivateKey     = "HUB_PRIVATE_KEY"
	AdjudicatorURL    = "ADJUDICATOR_URL"
	SweepInterval     = "SWEEP_INTERVAL"
	ChainPollInterval = "CHAIN_POLL_INTERVAL"
	LogLevel          = "LOG_LEVEL"

	defaultDatadir = btcutil.AppDataDir("forcemove-hubd", false)
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("FORCEMOVE")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(HTTPPort, 9000)
	viper.SetDefault(HubID, "hub")
	viper.SetDefault(SweepInterval, 30)
	viper.SetDefault(ChainPollInterval, 5)
	viper.SetDefault(LogLevel, 4)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	cfg := &Config{
		Datadir:           viper.GetString(Datadir),
		HTTPPort:          viper.GetUint32(HTTPPort),
		HubID:             viper.GetString(HubID),
		HubPrivateKey:     viper.GetString(HubPrivateKey),
		AdjudicatorURL:    viper.GetString(AdjudicatorURL),
		SweepInterval:     viper.GetInt64(SweepInterval),
		ChainPollInterval: viper.GetInt64(ChainPollInterval),
		LogLevel:          viper.GetInt(LogLevel),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SigningKey parses the configured private key.
func (c *Config) SigningKey() (*secp256k1.PrivateKey, error) {
	buf, err := hex.DecodeString(c.HubPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid hub private key: %s", err)
	}
	if len(buf) != 32 {
		return nil, fmt.Errorf("invalid hub private key length %d", len(buf))
	}
	return secp256k1.PrivKeyFromBytes(buf), nil
}

func (c *Config) validate() error {
	if len(c.HubPrivateKey) <= 0 {
		return fmt.Errorf("missing hub private key")
	}
	if _, err := c.SigningKey(); err != nil {
		return err
	}
	if len(c.AdjudicatorURL) <= 0 {
		return fmt.Errorf("missing adjudicator url")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("missing sweep interval")
	}
	return nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
