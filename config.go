package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	allowLateJoin  bool
	autoAdvance    time.Duration
	bind           string
	maxPlayers     int
	playerTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	questions      string
	rateBurst      int
	rateLimit      float64
	redisAddr      string
	redisDB        int
	redisPassword  string
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.maxPlayers < 2 {
		return fmt.Errorf("invalid max players (must be at least 2): %d", c.maxPlayers)
	}
	if c.playerTimeout <= 0 {
		return errors.New("--player-timeout must be positive")
	}
	if c.sessionTimeout < 0 || c.autoAdvance < 0 {
		return errors.New("--session-timeout and --auto-advance cannot be negative")
	}
	if c.rateLimit <= 0 || c.rateBurst < 1 {
		return errors.New("--rate-limit must be positive and --rate-burst at least 1")
	}
	if c.redisDB < 0 {
		return fmt.Errorf("invalid redis database: %d", c.redisDB)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// bindEnv fills every flag not set on the command line from its
// EITHEROR_-prefixed environment variable.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("EITHEROR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "eitheror",
		Short:         "A real-time \"would you rather\" guessing game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for the results archive, disabled if empty (env: EITHEROR_REDIS_ADDR)")
	pfs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database number (env: EITHEROR_REDIS_DB)")
	pfs.StringVar(&cfg.redisPassword, "redis-password", "", "redis password (env: EITHEROR_REDIS_PASSWORD)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: EITHEROR_VERBOSE)")

	fs := cmd.Flags()
	fs.BoolVar(&cfg.allowLateJoin, "allow-late-join", false, "let players join games already in progress (env: EITHEROR_ALLOW_LATE_JOIN)")
	fs.DurationVar(&cfg.autoAdvance, "auto-advance", 0, "start the next round this long after results are shown, 0 to wait for the host (env: EITHEROR_AUTO_ADVANCE)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: EITHEROR_BIND)")
	fs.IntVar(&cfg.maxPlayers, "max-players", 12, "maximum players per room (env: EITHEROR_MAX_PLAYERS)")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", time.Minute, "time before unresponsive players are disconnected (env: EITHEROR_PLAYER_TIMEOUT)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: EITHEROR_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: EITHEROR_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: EITHEROR_PROFILE)")
	fs.StringVarP(&cfg.questions, "questions", "q", "", "path to a YAML question file, built-in set if empty (env: EITHEROR_QUESTIONS)")
	fs.IntVar(&cfg.rateBurst, "rate-burst", 10, "messages a client may send in a burst (env: EITHEROR_RATE_BURST)")
	fs.Float64Var(&cfg.rateLimit, "rate-limit", 5, "sustained messages per second allowed per client (env: EITHEROR_RATE_LIMIT)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are closed (env: EITHEROR_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: EITHEROR_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: EITHEROR_TLS_KEY)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: EITHEROR_VERSION)")

	bindEnv(v, pfs)
	bindEnv(v, fs)

	cmd.AddCommand(newResultsCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("eitheror v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
