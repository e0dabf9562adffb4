// Package config loads the node's environment-driven configuration,
// grounded on mint/config.go's GetConfig in the teacher: the same
// os.Getenv/strconv reading style, generalized from a single
// hardcoded sat backend to a per-unit backend mapping (spec §9
// "Polymorphism: unit -> backend mapping is static configuration").
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type UnitBackend struct {
	Unit           string
	DepositAddress string
	SignerAddress  string
	CashierAddress string
	IndexerAddress string
	InputFeePpk    int16
	MaxOrder       int
}

type Limits struct {
	MaxBalance    uint64
	MintMinAmount uint64
	MintMaxAmount uint64
	MeltMinAmount uint64
	MeltMaxAmount uint64
}

type Config struct {
	NodePath string
	Port     string
	LogLevel slog.Level

	Name        string
	Description string

	Units  map[string]UnitBackend
	Limits Limits

	SignerTLS bool
}

// Load reads a .env file if present (github.com/joho/godotenv, same
// as the teacher's dependency for local dev config) then overlays
// process environment variables, which always win.
func Load(path string) (Config, error) {
	_ = godotenv.Load(path)

	cfg := Config{
		NodePath: getEnv("NODE_PATH", "./paynet-data"),
		Port:     getEnv("NODE_PORT", "3338"),
		Name:     os.Getenv("NODE_NAME"),
		Description: os.Getenv("NODE_DESCRIPTION"),
		SignerTLS:   os.Getenv("SIGNER_TLS") == "true",
	}

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	units, err := parseUnits(os.Getenv("NODE_UNITS"))
	if err != nil {
		return Config{}, err
	}
	cfg.Units = units

	cfg.Limits = Limits{
		MaxBalance:    envUint("MAX_BALANCE", 0),
		MintMinAmount: envUint("MINT_MIN_AMOUNT", 0),
		MintMaxAmount: envUint("MINT_MAX_AMOUNT", 0),
		MeltMinAmount: envUint("MELT_MIN_AMOUNT", 0),
		MeltMaxAmount: envUint("MELT_MAX_AMOUNT", 0),
	}

	return cfg, nil
}

// parseUnits reads NODE_UNITS as a comma-separated list of unit names
// and, for each, UNIT_<NAME>_{DEPOSIT_ADDRESS,SIGNER_ADDR,CASHIER_ADDR,
// INDEXER_ADDR,INPUT_FEE_PPK,MAX_ORDER}.
func parseUnits(spec string) (map[string]UnitBackend, error) {
	out := make(map[string]UnitBackend)
	if spec == "" {
		return out, nil
	}

	for _, unit := range strings.Split(spec, ",") {
		unit = strings.TrimSpace(unit)
		if unit == "" {
			continue
		}
		prefix := "UNIT_" + strings.ToUpper(unit) + "_"

		feePpk, err := strconv.ParseInt(envOr(prefix+"INPUT_FEE_PPK", "0"), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("config: invalid %sINPUT_FEE_PPK: %w", prefix, err)
		}
		maxOrder, err := strconv.Atoi(envOr(prefix+"MAX_ORDER", "64"))
		if err != nil {
			return nil, fmt.Errorf("config: invalid %sMAX_ORDER: %w", prefix, err)
		}

		out[unit] = UnitBackend{
			Unit:           unit,
			DepositAddress: os.Getenv(prefix + "DEPOSIT_ADDRESS"),
			SignerAddress:  os.Getenv(prefix + "SIGNER_ADDR"),
			CashierAddress: os.Getenv(prefix + "CASHIER_ADDR"),
			IndexerAddress: os.Getenv(prefix + "INDEXER_ADDR"),
			InputFeePpk:    int16(feePpk),
			MaxOrder:       maxOrder,
		}
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
