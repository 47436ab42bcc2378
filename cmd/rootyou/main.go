package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rootyou/rootyou/internal/access"
	"github.com/rootyou/rootyou/internal/api"
	"github.com/rootyou/rootyou/internal/config"
	"github.com/rootyou/rootyou/internal/crypto"
	"github.com/rootyou/rootyou/internal/metrics"
	"github.com/rootyou/rootyou/internal/session"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rootyou",
	Short: "RootYou — CTF competition platform client",
	Long:  "RootYou is the command-line client for the RootYou CTF platform: browse and join competitions, manage your team, message other players and follow the leaderboard.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.rootyou/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the pieces every command needs.
type app struct {
	cfg     *config.Config
	store   *session.Store
	decoder *session.Decoder
	client  *api.Client
	metrics *metrics.Metrics
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	cipher, err := crypto.NewCipher(cfg.Token.CipherKeyHex)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}

	store := session.NewStore(cfg.Token.Path, cipher)
	client := api.New(cfg.API.BaseURL, cfg.API.Timeout, store)
	m := metrics.New()
	client.SetMetrics(m)

	return &app{
		cfg:     cfg,
		store:   store,
		decoder: session.NewDecoder(),
		client:  client,
		metrics: m,
	}, nil
}

// currentSession decodes the stored credential. A malformed or expired token
// is cleared on the spot so the next command starts from a clean state.
func (a *app) currentSession() (*session.Session, error) {
	raw, err := a.store.Load()
	if err != nil {
		if errors.Is(err, session.ErrNoToken) {
			a.metrics.SetSessionValid(false)
			return nil, nil
		}
		return nil, err
	}

	sess, err := a.decoder.Decode(raw)
	if err != nil {
		a.metrics.SetSessionValid(false)
		if errors.Is(err, session.ErrTokenExpired) {
			slog.Info("stored credential expired, clearing it")
			_ = a.store.Clear()
			a.metrics.IncAuthFailure("expired")
			return nil, nil
		}
		if errors.Is(err, session.ErrMalformedToken) {
			slog.Warn("stored credential is malformed, clearing it")
			_ = a.store.Clear()
			a.metrics.IncAuthFailure("malformed")
			return nil, nil
		}
		return nil, err
	}

	a.metrics.SetSessionValid(true)
	return sess, nil
}

// requireSession enforces the role gate for a command. An empty role set
// only requires being logged in.
func (a *app) requireSession(required ...session.Role) (*session.Session, error) {
	sess, err := a.currentSession()
	if err != nil {
		return nil, err
	}
	switch access.Authorize(sess, required) {
	case access.Allow:
		return sess, nil
	case access.RedirectForbidden:
		return nil, fmt.Errorf("accès refusé: votre rôle %s ne permet pas cette action", sess.Role)
	default:
		return nil, errors.New("vous n'êtes pas connecté: lancez `rootyou login`")
	}
}

// requireCapability checks the role/feature table after the login gate, so
// a command fails locally before issuing a request the backend would 403.
func (a *app) requireCapability(capability access.Capability) (*session.Session, error) {
	sess, err := a.requireSession()
	if err != nil {
		return nil, err
	}
	if !access.Can(sess.Role, capability) {
		return nil, fmt.Errorf("accès refusé: votre rôle %s ne permet pas cette action", sess.Role)
	}
	return sess, nil
}

// handleUnauthorized clears the credential when the backend rejects it, so
// the stale token is not retried forever.
func (a *app) handleUnauthorized(err error) error {
	if api.IsUnauthorized(err) {
		_ = a.store.Clear()
		a.metrics.SetSessionValid(false)
		return errors.New("session expirée: lancez `rootyou login`")
	}
	return err
}
