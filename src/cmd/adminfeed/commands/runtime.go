// FILE: adminfeed/src/cmd/adminfeed/commands/runtime.go
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"adminfeed/src/internal/auth"
	"adminfeed/src/internal/config"
	"adminfeed/src/internal/feed"
	"adminfeed/src/internal/filter"
	"adminfeed/src/internal/format"
	"adminfeed/src/internal/history"
	"adminfeed/src/internal/registry"
	ltls "adminfeed/src/internal/tls"
	"adminfeed/src/internal/transport"
	"adminfeed/src/internal/version"

	"github.com/lixenwraith/log"
)

// shutdownTimeout bounds the teardown of the runtime
const shutdownTimeout = 10 * time.Second

// runtime wires the shared components of one CLI invocation
type runtime struct {
	cfg       *config.Config
	logger    *log.Logger
	tokens    auth.TokenSource
	transport *transport.Client
	registry  *registry.Registry
	history   *history.Client
	formatter format.Formatter
	tls       *ltls.ClientManager
}

// loadConfig applies -c/--config and -q/--quiet, then loads configuration with the dotted overrides
func loadConfig(common commonFlags, configArgs []string) (*config.Config, error) {
	if common.configFile != "" {
		os.Setenv("ADMINFEED_CONFIG_FILE", common.configFile)
	}
	cfg, err := config.Load(configArgs)
	if err != nil {
		return nil, err
	}
	if common.quiet {
		cfg.Quiet = true
	}
	return cfg, nil
}

// newRuntime builds the logger, credentials, transport, registry and history client
func newRuntime(cfg *config.Config) (*runtime, error) {
	logger, err := initializeLogger(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("msg", "adminfeed starting",
		"version", version.String(),
		"config_file", cfg.ConfigFile,
		"auth_method", cfg.Auth.Method,
		"transport_url", cfg.Transport.URL)

	rt := &runtime{cfg: cfg, logger: logger}
	if err := rt.build(); err != nil {
		rt.shutdownLogger()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) build() error {
	cfg := rt.cfg

	tokens, err := auth.NewTokenSource(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	rt.tokens = tokens

	tlsManager, err := ltls.NewClientManager(&cfg.TLS, rt.logger)
	if err != nil {
		return fmt.Errorf("tls: %w", err)
	}
	rt.tls = tlsManager

	opts := transport.OptionsFromConfig(&cfg.Transport)
	opts.TLSConfig = tlsManager.GetConfig()
	if cfg.Auth.Method == config.AuthMethodScram {
		password, err := scramPassword(cfg.Auth.Scram)
		if err != nil {
			return err
		}
		opts.Scram = &auth.ScramAccount{Username: cfg.Auth.Scram.Username, Password: password}
		opts.Session, _ = tokens.(*auth.SessionToken)
	} else {
		opts.Tokens = tokens
	}

	rt.transport, err = transport.New(opts, rt.logger)
	if err != nil {
		return fmt.Errorf("transport: %w", err)
	}
	rt.registry = registry.New(rt.transport, rt.logger)

	rt.history, err = history.New(&cfg.History, tokens, rt.logger)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	rt.history.SetTLSConfig(tlsManager.GetConfig())

	rt.formatter, err = format.New(&cfg.Output, rt.logger)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// scramPassword returns the configured password or prompts for one on a terminal
func scramPassword(sc *config.ScramConfig) (string, error) {
	if sc.Password != "" {
		return sc.Password, nil
	}
	if !auth.IsTerminal() {
		return "", fmt.Errorf("scram password not configured and stdin is not a terminal")
	}
	return auth.PromptPassword(os.Stderr, fmt.Sprintf("Password for %s: ", sc.Username))
}

// feedConfig resolves a feed by name
func (rt *runtime) feedConfig(name string) (*config.FeedConfig, error) {
	fc, ok := rt.cfg.Feed(name)
	if !ok {
		return nil, fmt.Errorf("unknown feed '%s'", name)
	}
	return fc, nil
}

// openFeed creates the synchronizer of a configured feed with the initial criteria
func (rt *runtime) openFeed(fc *config.FeedConfig, criteria filter.Criteria) (*feed.Synchronizer, error) {
	opts := feed.OptionsFromConfig(fc)
	opts.Criteria = criteria
	return feed.New(opts, rt.transport, rt.registry, rt.history.EndpointFor(fc), rt.logger)
}

// ensureSession establishes the SCRAM session whose id authorizes history requests
func (rt *runtime) ensureSession(ctx context.Context) error {
	if rt.cfg.Auth.Method != config.AuthMethodScram {
		return nil
	}
	rt.transport.Retain()
	defer rt.transport.Release()
	if err := rt.transport.Connect(ctx); err != nil {
		return fmt.Errorf("scram login: %w", err)
	}
	return nil
}

// close tears the runtime down within shutdownTimeout
func (rt *runtime) close() {
	done := make(chan struct{})
	go func() {
		rt.transport.Close()
		close(done)
	}()

	select {
	case <-done:
		rt.logger.Info("msg", "Shutdown complete",
			"transport", rt.transport.GetStats(),
			"history", rt.history.GetStats(),
			"tls", rt.tls.GetStats())
	case <-time.After(shutdownTimeout):
		rt.logger.Error("msg", "Shutdown timeout exceeded")
	}
	rt.shutdownLogger()
}

func (rt *runtime) shutdownLogger() {
	if err := rt.logger.Shutdown(2 * time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	}
}
