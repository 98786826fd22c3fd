package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"github.com/rs/zerolog"
)

// Process configuration, read from the environment the peer (or the
// chaincode-as-a-service deployment) provides.
const (
	envServerAddress = "CHAINCODE_SERVER_ADDRESS" // Set: run as external service
	envCCID          = "CHAINCODE_ID"             // Package ID assigned at install
	envTLSDisabled   = "CHAINCODE_TLS_DISABLED"   // Default true
	envTLSKey        = "CHAINCODE_TLS_KEY_FILE"
	envTLSCert       = "CHAINCODE_TLS_CERT_FILE"
	envClientCA      = "CHAINCODE_CLIENT_CA_FILE"
	envLogLevel      = "LOG_LEVEL"  // zerolog level name, default info
	envLogFormat     = "LOG_FORMAT" // "json" (default) or "console"
)

type config struct {
	Address     string
	CCID        string
	TLSDisabled bool
	TLSKeyFile  string
	TLSCertFile string
	ClientCA    string
	LogLevel    zerolog.Level
	LogFormat   string
}

// asService reports whether the chaincode should listen instead of dialing the peer.
func (c config) asService() bool { return c.Address != "" }

func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		Address:     strings.TrimSpace(getenv(envServerAddress)),
		CCID:        strings.TrimSpace(getenv(envCCID)),
		TLSDisabled: true,
		TLSKeyFile:  getenv(envTLSKey),
		TLSCertFile: getenv(envTLSCert),
		ClientCA:    getenv(envClientCA),
		LogLevel:    zerolog.InfoLevel,
		LogFormat:   "json",
	}
	if v := getenv(envTLSDisabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", envTLSDisabled, err)
		}
		cfg.TLSDisabled = b
	}
	if v := getenv(envLogLevel); v != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", envLogLevel, err)
		}
		cfg.LogLevel = lvl
	}
	if v := getenv(envLogFormat); v != "" {
		switch v = strings.ToLower(v); v {
		case "json", "console":
			cfg.LogFormat = v
		default:
			return cfg, fmt.Errorf("%s: unknown format %q", envLogFormat, v)
		}
	}
	if cfg.asService() && cfg.CCID == "" {
		return cfg, fmt.Errorf("%s is required with %s", envCCID, envServerAddress)
	}
	if cfg.asService() && !cfg.TLSDisabled && (cfg.TLSKeyFile == "" || cfg.TLSCertFile == "") {
		return cfg, fmt.Errorf("%s and %s are required when TLS is enabled", envTLSKey, envTLSCert)
	}
	return cfg, nil
}

func newLogger(cfg config, w io.Writer) zerolog.Logger {
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(cfg.LogLevel).With().Timestamp().Str("cc", contractName).Logger()
}

// tlsProperties reads the TLS material named by cfg.
func tlsProperties(cfg config, readFile func(string) ([]byte, error)) (shim.TLSProperties, error) {
	if cfg.TLSDisabled {
		return shim.TLSProperties{Disabled: true}, nil
	}
	key, err := readFile(cfg.TLSKeyFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("tls key: %w", err)
	}
	cert, err := readFile(cfg.TLSCertFile)
	if err != nil {
		return shim.TLSProperties{}, fmt.Errorf("tls cert: %w", err)
	}
	var ca []byte
	if cfg.ClientCA != "" {
		if ca, err = readFile(cfg.ClientCA); err != nil {
			return shim.TLSProperties{}, fmt.Errorf("client ca: %w", err)
		}
	}
	return shim.TLSProperties{Key: key, Cert: cert, ClientCACerts: ca}, nil
}
