package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ericfisherdev/heaterpanel/internal/adapter/driven/heaterapi"
	sqliteadapter "github.com/ericfisherdev/heaterpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/heaterpanel/internal/application"
	"github.com/ericfisherdev/heaterpanel/internal/config"
	"github.com/ericfisherdev/heaterpanel/internal/domain/model"
	"github.com/ericfisherdev/heaterpanel/internal/domain/port/driven"
)

// Flag names double as viper keys; HEATER_<KEY> env vars fill them in.
const (
	flagConfig    = "config"
	flagAPIURL    = "api-url"
	flagDBPath    = "db-path"
	flagSecretKey = "secret-key"
	flagProfile   = "profile"
	flagLogLevel  = "log-level"
)

// settings is the resolved CLI configuration (flags > env > config file).
type settings struct {
	APIURL    string
	DBPath    string
	SecretKey []byte
	Profile   string
	LogLevel  slog.Level
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "heaterctl",
		Short:         "Manage heater instances from the terminal",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return readConfigFile(v)
		},
	}

	flags := root.PersistentFlags()
	flags.String(flagConfig, "", "path to a YAML config file")
	flags.String(flagAPIURL, "http://localhost:8000", "heater backend base URL")
	flags.String(flagDBPath, "heaterpanel.db", "SQLite file holding saved sessions")
	flags.String(flagSecretKey, "", "32-byte session encryption key, hex or base64")
	flags.String(flagProfile, "default", "session profile name")
	flags.String(flagLogLevel, "warn", "log level (debug, info, warn, error)")

	v.SetEnvPrefix("HEATER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(flags)

	root.AddCommand(newLoginCmd(v))
	root.AddCommand(newRegisterCmd(v))
	root.AddCommand(newLogoutCmd(v))
	root.AddCommand(newInstancesCmd(v))
	root.AddCommand(newPairCmd(v))
	root.AddCommand(newWarmingCmd(v))

	return root
}

func readConfigFile(v *viper.Viper) error {
	path := v.GetString(flagConfig)
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func loadSettings(v *viper.Viper) (settings, error) {
	s := settings{
		APIURL:  v.GetString(flagAPIURL),
		DBPath:  v.GetString(flagDBPath),
		Profile: strings.TrimSpace(v.GetString(flagProfile)),
	}
	if s.Profile == "" {
		return settings{}, errors.New("profile must not be empty")
	}

	if raw := v.GetString(flagSecretKey); raw != "" {
		key, err := config.ParseSecretKey(raw)
		if err != nil {
			return settings{}, fmt.Errorf("%s: %w", flagSecretKey, err)
		}
		s.SecretKey = key
	}

	if err := s.LogLevel.UnmarshalText([]byte(v.GetString(flagLogLevel))); err != nil {
		return settings{}, fmt.Errorf("%s: %w", flagLogLevel, err)
	}
	return s, nil
}

// session is one CLI invocation's view of the saved profile.
type session struct {
	dash   *application.Dashboard
	logger *slog.Logger
	close  func()
}

// openSession wires the backend client and, when a secret key is set, the
// encrypted session store. Commands that must remember a login between
// invocations pass needStore.
func openSession(cmd *cobra.Command, v *viper.Viper, needStore bool) (*session, error) {
	s, err := loadSettings(v)
	if err != nil {
		return nil, err
	}
	if needStore && s.SecretKey == nil {
		return nil, fmt.Errorf("%w (or pass --%s)", driven.ErrEncryptionKeyNotSet, flagSecretKey)
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: s.LogLevel}))

	api, err := heaterapi.NewClient(s.APIURL)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	closeFn := func() {}
	var store driven.CredentialStore
	if s.SecretKey != nil {
		db, err := openStore(ctx, s.DBPath)
		if err != nil {
			return nil, err
		}
		closeFn = func() {
			if err := db.Close(); err != nil {
				logger.Error("error closing database", "error", err)
			}
		}
		store = sqliteadapter.NewCredentialRepo(db, s.SecretKey)
	}

	devices := application.NewDevices(api, store, logger)
	return &session{
		dash:   devices.Get(ctx, "cli:"+s.Profile),
		logger: logger,
		close:  closeFn,
	}, nil
}

func openStore(ctx context.Context, path string) (*sqliteadapter.DB, error) {
	db, err := sqliteadapter.NewDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// flushNotices prints and drains queued notices: errors to stderr, the rest
// to stdout.
func (s *session) flushNotices(stdout, stderr io.Writer) {
	for _, n := range s.dash.Notices() {
		w := stdout
		if n.Level == model.NoticeError {
			w = stderr
		}
		fmt.Fprintln(w, n.Message)
	}
}
