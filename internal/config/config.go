package config

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/auth"
	"raffle-escrow/internal/host"
	"raffle-escrow/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "RAFFLE"

// DefaultProgramSeed names the program when no explicit id is configured.
const DefaultProgramSeed = "raffle_escrow_program"

var ErrNoSigner = errors.New("config: no signer configured")

type Config struct {
	Database DatabaseConfig
	Log      LogConfig
	Program  ProgramConfig
	Rent     RentConfig
	Clock    ClockConfig
	Signer   SignerConfig
}

type DatabaseConfig struct {
	Path string
}

type LogConfig struct {
	File      string
	ErrorFile string
	Level     string
	Console   bool
}

// ProgramConfig identifies the program. ID takes the raw "0:<hex>" form;
// when empty the id is hashed from Seed.
type ProgramConfig struct {
	ID   string
	Seed string
}

type RentConfig struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

type ClockConfig struct {
	StartSlot    uint64
	SlotDuration time.Duration
}

// SignerConfig holds the operator key, either as a wallet mnemonic or as a
// hex ed25519 seed. The mnemonic wins when both are set.
type SignerConfig struct {
	Mnemonic string
	SeedHex  string
}

// Load reads envFiles (missing files are fine), then the process
// environment. Every key is available as RAFFLE_<SECTION>_<KEY>, e.g.
// RAFFLE_DATABASE_PATH.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", file, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		Log: LogConfig{
			File:      v.GetString("log.file"),
			ErrorFile: v.GetString("log.errorfile"),
			Level:     v.GetString("log.level"),
			Console:   v.GetBool("log.console"),
		},
		Program: ProgramConfig{
			ID:   v.GetString("program.id"),
			Seed: v.GetString("program.seed"),
		},
		Rent: RentConfig{
			LamportsPerByteYear: v.GetUint64("rent.lamportsperbyteyear"),
			ExemptionThreshold:  v.GetUint64("rent.exemptionthreshold"),
		},
		Clock: ClockConfig{
			StartSlot:    v.GetUint64("clock.startslot"),
			SlotDuration: v.GetDuration("clock.slotduration"),
		},
		Signer: SignerConfig{
			Mnemonic: v.GetString("signer.mnemonic"),
			SeedHex:  v.GetString("signer.seedhex"),
		},
	}

	if config.Database.Path == "" {
		return nil, errors.New("config: database path is empty")
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "persistent.db")
	v.SetDefault("log.file", "")
	v.SetDefault("log.errorfile", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("program.id", "")
	v.SetDefault("program.seed", DefaultProgramSeed)
	v.SetDefault("rent.lamportsperbyteyear", host.DefaultRent.LamportsPerByteYear)
	v.SetDefault("rent.exemptionthreshold", host.DefaultRent.ExemptionThreshold)
	v.SetDefault("clock.startslot", 0)
	v.SetDefault("clock.slotduration", "400ms")
	v.SetDefault("signer.mnemonic", "")
	v.SetDefault("signer.seedhex", "")
}

func (c *Config) Logger() logger.Configuration {
	return logger.Configuration{
		LogFile:   c.Log.File,
		ErrorFile: c.Log.ErrorFile,
		Level:     c.Log.Level,
		Console:   c.Log.Console,
	}
}

func (c *Config) ProgramID() (address.Address, error) {
	if c.Program.ID != "" {
		return address.Parse(c.Program.ID)
	}
	return address.Address(sha256.Sum256([]byte(c.Program.Seed))), nil
}

func (c *Config) RentSchedule() host.Rent {
	return host.Rent{
		LamportsPerByteYear: c.Rent.LamportsPerByteYear,
		ExemptionThreshold:  c.Rent.ExemptionThreshold,
	}
}

// OperatorSigner builds the configured signer, or returns ErrNoSigner.
func (c *Config) OperatorSigner() (*auth.Signer, error) {
	switch {
	case c.Signer.Mnemonic != "":
		return auth.SignerFromMnemonic(c.Signer.Mnemonic)
	case c.Signer.SeedHex != "":
		return auth.SignerFromSeedHex(c.Signer.SeedHex)
	}
	return nil, ErrNoSigner
}
