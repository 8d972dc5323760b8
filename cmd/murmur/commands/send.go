package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/murmur/internal/printer"
	"github.com/dyluth/murmur/internal/watch"
	"github.com/dyluth/murmur/pkg/presence"
	"github.com/spf13/cobra"
)

var (
	sendAs   string
	sendWait time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <token> <message>",
	Short: "Publish one greeting to a peer",
	Long: `Publish a single greeting envelope to a peer's channel.

The target peer answers with a reply addressed to the sender token, so pass
--as with a token you are watching to see the answer arrive.

Delivery is at-most-once: if the peer is not subscribed the message is lost.
Use --wait to poll the registry until the target has registered.

Examples:
  murmur send 0b6e2f7c-5a51-4a8e-9a3c-2f0f3c1f1d2a "hello there"
  murmur send $TOKEN "ping" --as operator --wait 10s`,
	Args: cobra.ExactArgs(2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendAs, "as", "", "Sender token (random if omitted)")
	sendCmd.Flags().DurationVar(&sendWait, "wait", 0, "Wait up to this long for the target to register")
	rootCmd.AddCommand(sendCmd)
}

// messenger is the slice of *presence.Client that send needs.
type messenger interface {
	Members(ctx context.Context) ([]string, error)
	Send(ctx context.Context, to string, env presence.Envelope) error
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	from := sendAs
	if from == "" {
		from = presence.NewToken()
	}

	if err := sendMessage(ctx, client, args[0], from, args[1], sendWait); err != nil {
		return err
	}

	printer.Success("Sent greeting to %s as %s\n", args[0], from)
	return nil
}

func sendMessage(ctx context.Context, client messenger, to, from, content string, wait time.Duration) error {
	if wait > 0 {
		printer.Step("Waiting up to %v for %s to register...\n", wait, to)
		if err := watch.WaitForMember(ctx, client, to, wait); err != nil {
			return printer.Error(
				"peer did not register",
				err.Error(),
				nil,
				"List registered peers:\n     murmur peers",
			)
		}
	}

	env := presence.Envelope{SenderID: from, Content: content, Kind: presence.KindGreeting}
	if err := client.Send(ctx, to, env); err != nil {
		return printer.Error(
			"send failed",
			fmt.Sprintf("Could not publish to %s: %v", to, err),
			nil,
		)
	}
	return nil
}
