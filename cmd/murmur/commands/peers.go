package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dyluth/murmur/internal/printer"
	"github.com/dyluth/murmur/pkg/presence"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var peersOutputFormat string

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List registered peers",
	Long: `List every token currently held in the peer registry.

Output Formats:
  table - Aligned table with each peer's channel (default)
  json  - JSON array for programmatic processing

Examples:
  murmur peers
  murmur peers --namespace prod -o json`,
	Args: cobra.NoArgs,
	RunE: runPeers,
}

var pruneCmd = &cobra.Command{
	Use:   "prune <token>...",
	Short: "Remove stale tokens from the registry",
	Long: `Remove tokens left behind by peers that were killed before they could
deregister. Live peers are unaffected until they restart.

Examples:
  murmur peers prune 0b6e2f7c-5a51-4a8e-9a3c-2f0f3c1f1d2a`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPrune,
}

func init() {
	peersCmd.Flags().StringVarP(&peersOutputFormat, "output", "o", "table", "Output format (table or json)")
	peersCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(peersCmd)
}

// PeerInfo is one registry entry as reported by `murmur peers -o json`.
type PeerInfo struct {
	Token   string `json:"token"`
	Channel string `json:"channel"`
}

// registryClient is the slice of *presence.Client the peers commands need.
type registryClient interface {
	Members(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, token string) error
	ChannelFor(token string) string
}

func runPeers(cmd *cobra.Command, args []string) error {
	if peersOutputFormat != "table" && peersOutputFormat != "json" {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", peersOutputFormat),
			nil,
			"Valid formats: table, json",
		)
	}

	ctx := cmd.Context()
	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	infos, err := listPeers(ctx, client)
	if err != nil {
		return registryError(err)
	}

	if peersOutputFormat == "json" {
		return outputJSON(cmd.OutOrStdout(), infos)
	}
	outputTable(infos)
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	removed, err := prunePeers(ctx, client, args)
	if err != nil {
		return registryError(err)
	}

	if removed == 0 {
		printer.Info("No matching tokens were registered\n")
		return nil
	}
	printer.Success("Removed %d token(s) from %s\n", removed, client.RegistryKey())
	return nil
}

func listPeers(ctx context.Context, client registryClient) ([]PeerInfo, error) {
	members, err := client.Members(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]PeerInfo, 0, len(members))
	for _, token := range members {
		infos = append(infos, PeerInfo{Token: token, Channel: client.ChannelFor(token)})
	}
	return infos, nil
}

// prunePeers removes each token and reports how many were actually registered.
func prunePeers(ctx context.Context, client registryClient, tokens []string) (int, error) {
	before, err := client.Members(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, token := range tokens {
		if !lo.Contains(before, token) {
			printer.Warning("%s is not registered\n", token)
			continue
		}

		if err := client.Remove(ctx, token); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", token, err)
		}
		removed++
	}
	return removed, nil
}

func outputTable(infos []PeerInfo) {
	if len(infos) == 0 {
		printer.Info("No peers registered\n")
		return
	}

	rows := make([][]string, 0, len(infos))
	for i, info := range infos {
		rows = append(rows, []string{strconv.Itoa(i + 1), info.Token, info.Channel})
	}
	printer.Table([]string{"#", "Token", "Channel"}, rows)
}

func outputJSON(w io.Writer, infos []PeerInfo) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(infos)
}

func registryError(err error) error {
	if errors.Is(err, presence.ErrCorruptRegistry) {
		return printer.Error(
			"registry is corrupt",
			err.Error(),
			nil,
			"Inspect the key with redis-cli and reset it to [] if it cannot be repaired",
		)
	}
	return printer.Error("registry operation failed", err.Error(), nil)
}
