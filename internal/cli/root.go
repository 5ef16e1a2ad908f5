// Package cli implements the cienspay command-line client
package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/auth"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/cienspay/cienspay-web/session"
	"github.com/cienspay/cienspay-web/session/filestore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Setting keys, also reachable as CIENSPAY_<KEY> environment variables
const (
	keyAPIURL      = "api_url"
	keySessionFile = "session_file"
	keyAdminEmail  = "admin_email"
	keyTimeout     = "timeout"
	keyRefreshMode = "refresh_mode"
	keyVerbose     = "verbose"
)

const (
	envPrefix      = "CIENSPAY"
	configFileName = ".cienspay"
)

// app carries what every command needs once settings are resolved
type app struct {
	v      *viper.Viper
	logger zerolog.Logger
}

// NewRootCmd builds the command tree. Each call has its own settings, so tests can run several.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var cfgFile string

	root := &cobra.Command{
		Use:           "cienspay",
		Short:         "CiensPay command-line client",
		Long:          "cienspay logs in to a CiensPay backend, keeps the session on disk and runs account and admin queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, cfgFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cienspay.yaml)")
	flags.String("api-url", "http://localhost:8000/api", "backend base URL")
	flags.String("session-file", "", "session file (default is the user config dir)")
	flags.String("admin-email", "admin@cienspay.com", "email address treated as the administrator")
	flags.Duration("timeout", 10*time.Second, "backend request timeout")
	flags.String("refresh-mode", string(apiclient.RefreshModeCustom), "token refresh endpoint: custom or simplejwt")
	flags.BoolP("verbose", "v", false, "verbose output")

	for key, flag := range map[string]string{
		keyAPIURL:      "api-url",
		keySessionFile: "session-file",
		keyAdminEmail:  "admin-email",
		keyTimeout:     "timeout",
		keyRefreshMode: "refresh-mode",
		keyVerbose:     "verbose",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newAdminCmd(a),
		newCardCmd(),
	)
	return root
}

// Execute runs the CLI with os.Args
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// init resolves settings: flags, then CIENSPAY_* variables, then the config file
func (a *app) init(cmd *cobra.Command, cfgFile string) error {
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigName(configFileName)
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	level := zerolog.WarnLevel
	if a.v.GetBool(keyVerbose) {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
	cmd.SetContext(a.logger.WithContext(cmd.Context()))

	a.logger.Debug().
		Str("api_url", a.v.GetString(keyAPIURL)).
		Str("config", a.v.ConfigFileUsed()).
		Msg("configuration loaded")
	return nil
}

func (a *app) sessionPath() (string, error) {
	if p := a.v.GetString(keySessionFile); p != "" {
		return filepath.Clean(p), nil
	}
	return filestore.DefaultPath()
}

// manager opens the on-disk session
func (a *app) manager() (*session.Manager, error) {
	path, err := a.sessionPath()
	if err != nil {
		return nil, err
	}
	store, err := filestore.New(path)
	if err != nil {
		return nil, err
	}
	return session.NewManager(store, a.v.GetString(keyAdminEmail)), nil
}

func (a *app) api() (*apiclient.Client, error) {
	return apiclient.New(apiclient.Config{
		BaseURL:     a.v.GetString(keyAPIURL),
		Timeout:     a.v.GetDuration(keyTimeout),
		RefreshMode: apiclient.RefreshMode(a.v.GetString(keyRefreshMode)),
	})
}

func (a *app) authService() (*auth.Service, error) {
	api, err := a.api()
	if err != nil {
		return nil, err
	}
	return auth.NewService(api)
}

// printFieldErrors writes one line per failing field, in field order
func printFieldErrors(w io.Writer, errs auth.FieldErrors) {
	for _, field := range sortedFields(errs) {
		fmt.Fprintf(w, "  %s: %s\n", field, errs[field])
	}
}

// requireLogin fails early when there is no session on disk
func requireLogin(m *session.Manager) error {
	if !m.IsLoggedIn() {
		return errNotLoggedIn
	}
	return nil
}

var errNotLoggedIn = fmt.Errorf("%w, run `cienspay login` first", errors.ErrNotLoggedIn)

func sortedFields(errs auth.FieldErrors) []string {
	return slices.Sorted(maps.Keys(errs))
}
