// Package config loads the client's configuration in layers, after the
// teacher repo's ReadJSONConfig + flag.StringVar pattern — a file
// provides defaults and overrides come from the environment — but
// reads the file layer with Viper instead of a bespoke encoding/json
// helper (see SPEC_FULL.md's DOMAIN STACK). There are no command-line
// overrides of individual settings; the command line only names the
// file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dshivanandham/exasol-pow-client/internal/identity"
	"github.com/dshivanandham/exasol-pow-client/internal/transport"
)

// envPrefix matches every POWCLIENT_-prefixed environment variable to
// its corresponding config key (dots in the key become underscores,
// e.g. POWCLIENT_TRANSPORT_ADDRESS for transport.address).
const envPrefix = "POWCLIENT"

// Config is the full record loaded from file and environment:
// transport settings plus the identity answers the session replies
// with once authenticated.
type Config struct {
	Transport transport.Config
	Identity  identity.Answers

	TracerServerAddr string
	TracerIdentity   string
}

// Load reads path (JSON or YAML; Viper sniffs the format from the
// extension) and layers POWCLIENT_-prefixed environment variables on
// top.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("transport.maxattempts", 10)
	v.SetDefault("transport.retrydelay", "3s")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	cfg.Transport.Address = v.GetString("transport.address")
	cfg.Transport.Port = uint16(v.GetUint32("transport.port"))
	for _, p := range v.GetIntSlice("transport.ports") {
		cfg.Transport.Ports = append(cfg.Transport.Ports, uint16(p))
	}
	cfg.Transport.ServerName = v.GetString("transport.servername")
	cfg.Transport.CACertPath = v.GetString("transport.cacert")
	cfg.Transport.ClientCert = v.GetString("transport.clientcert")
	cfg.Transport.ClientKey = v.GetString("transport.clientkey")
	cfg.Transport.MaxAttempts = v.GetInt("transport.maxattempts")
	cfg.Transport.RetryDelay = v.GetDuration("transport.retrydelay")
	if cfg.Transport.RetryDelay == 0 {
		cfg.Transport.RetryDelay = 3 * time.Second
	}

	cfg.Identity.FullName = v.GetString("identity.fullname")
	cfg.Identity.MailCount = v.GetString("identity.mailcount")
	cfg.Identity.Email = v.GetString("identity.email")
	cfg.Identity.Skype = v.GetString("identity.skype")
	cfg.Identity.Birthdate = v.GetString("identity.birthdate")
	cfg.Identity.Country = v.GetString("identity.country")
	cfg.Identity.AddrCount = v.GetString("identity.addrcount")
	cfg.Identity.AddrLine1 = v.GetString("identity.addrline1")
	cfg.Identity.AddrLine2 = v.GetString("identity.addrline2")

	cfg.TracerServerAddr = v.GetString("tracer.serveraddr")
	cfg.TracerIdentity = v.GetString("tracer.identity")
	if cfg.TracerIdentity == "" {
		cfg.TracerIdentity = "client"
	}

	if cfg.Transport.Address == "" {
		return Config{}, fmt.Errorf("config: transport.address is required")
	}

	return cfg, nil
}
