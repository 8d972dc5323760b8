package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/murmur/internal/peer"
	"github.com/dyluth/murmur/internal/printer"
	"github.com/dyluth/murmur/pkg/presence"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

var (
	redisURLFlag  string
	namespaceFlag string
	configFlag    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "murmur",
	Short: "Murmur - inspect and poke a Redis peer mesh",
	Long: `Murmur is the operator tool for a mesh of murmurd peers.

Every peer registers its token in a shared Redis registry and greets all
other registered peers on their personal channels. This tool lists the
registry, removes stale tokens, publishes one-off greetings and eavesdrops
on a peer's channel.

Connection settings come from murmur.yml, MURMUR_* environment variables
and the global flags, in increasing order of precedence.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&redisURLFlag, "redis-url", "", "Redis URL (overrides MURMUR_REDIS_URL)")
	rootCmd.PersistentFlags().StringVar(&namespaceFlag, "namespace", "", "Mesh namespace (overrides MURMUR_NAMESPACE)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to murmur.yml (defaults to $MURMUR_CONFIG)")
}

// connect resolves connection settings and returns a client that answered PING.
// Caller must Close the client.
func connect(ctx context.Context) (*presence.Client, error) {
	cfg, err := peer.LoadConfig(configFlag)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			nil,
			"Check murmur.yml and MURMUR_* environment variables",
		)
	}

	if redisURLFlag != "" {
		cfg.RedisURL = redisURLFlag
	}
	if namespaceFlag != "" {
		cfg.Namespace = namespaceFlag
	}

	redisOpts, err := cfg.RedisOptions()
	if err != nil {
		return nil, printer.Error("invalid Redis URL", err.Error(), nil, "Use the form redis://host:port/db")
	}

	client, err := presence.NewClient(redisOpts, cfg.Namespace)
	if err != nil {
		return nil, printer.Error("invalid namespace", err.Error(), nil)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, printer.Error(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to Redis: %v", err),
			map[string]string{"Redis": cfg.RedisURL},
			"Check that Redis is running and reachable",
			"Point murmur at another server:\n     murmur --redis-url redis://host:6379",
		)
	}

	return client, nil
}
