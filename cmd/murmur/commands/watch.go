package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/murmur/internal/printer"
	"github.com/dyluth/murmur/internal/watch"
	"github.com/spf13/cobra"
)

var watchOutputFormat string

var watchCmd = &cobra.Command{
	Use:   "watch <token>",
	Short: "Stream envelopes published to a peer's channel",
	Long: `Subscribe to a peer's channel and print every envelope published to it
until interrupted. The peer itself keeps receiving them as well.

Output Formats:
  default - Human-readable output with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  murmur watch 0b6e2f7c-5a51-4a8e-9a3c-2f0f3c1f1d2a
  murmur watch $TOKEN --output=json > traffic.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or json)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			err.Error(),
			nil,
			"Valid formats: default, json",
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	sub, err := client.Subscribe(ctx, args[0])
	if err != nil {
		return printer.Error("subscribe failed", err.Error(), nil)
	}
	defer sub.Close()

	if format == watch.OutputFormatDefault {
		printer.Step("Watching %s (Ctrl+C to stop)\n", sub.Channel())
	}

	return watch.Stream(ctx, sub, format, cmd.OutOrStdout())
}
