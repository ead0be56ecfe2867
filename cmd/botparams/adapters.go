package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/keepmind9/botparams/internal/core"
	"github.com/keepmind9/botparams/pkg/adapters"
	"github.com/keepmind9/botparams/pkg/params"
	"github.com/spf13/cobra"
)

var adaptersJSON bool

// AdapterInfo describes what the params helpers resolve for one adapter
type AdapterInfo struct {
	Kind           string `json:"kind"`
	Name           string `json:"name"`
	Segments       string `json:"segments"`        // builtin, adapter, none
	Image          bool   `json:"image"`           // ImageSegmentMethod resolves
	PrivateMessage string `json:"private_message"` // supported, unsupported, never
}

// probeEvent is a placeholder event used to resolve adapter features
type probeEvent struct{}

func (probeEvent) EventName() string { return "message.probe" }
func (probeEvent) EventType() string { return adapters.EventTypeMessage }
func (probeEvent) UserID() string { return "" }
func (probeEvent) SessionID() string { return "" }
func (probeEvent) PlainText() string { return "" }

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List supported adapters and their features",
	Long:  "Show, for every supported bot kind, where its segment factory comes from and whether images and private-message checks are available",
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := describeAdapters(cmd.Context())
		if err != nil {
			return err
		}
		return printAdapters(cmd.OutOrStdout(), infos, adaptersJSON)
	},
}

func describeAdapters(ctx context.Context) ([]AdapterInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var infos []AdapterInfo
	for _, kind := range core.BotKinds {
		bot, err := core.NewBot(kind, core.BotConfig{})
		if err != nil {
			return nil, err
		}
		state := params.NewState(bot, probeEvent{})
		adapter := bot.Adapter()

		info := AdapterInfo{Kind: kind, Name: adapter.Name(), Segments: "none"}
		if _, err := params.MessageSegmentClass(ctx, state); err == nil {
			info.Segments = "builtin"
			if _, ok := adapter.(adapters.SegmentProvider); ok {
				info.Segments = "adapter"
			}
		}
		if _, err := params.ImageSegmentMethod(ctx, state); err == nil {
			info.Image = true
		}
		info.PrivateMessage = privateMessageSupport(ctx, state)

		infos = append(infos, info)
	}
	return infos, nil
}

// privateMessageSupport reports how IsPrivateMessage treats the adapter of state
func privateMessageSupport(ctx context.Context, state *params.State) string {
	if _, err := params.IsPrivateMessage().Check(ctx, state); errors.Is(err, params.ErrNotSupported) {
		return "unsupported"
	}
	for _, only := range []params.Permission{params.OneBotOnly(), params.FeishuOnly(), params.TelegramOnly()} {
		if ok, _ := only.Check(ctx, state); ok {
			return "supported"
		}
	}
	return "never"
}

func printAdapters(out io.Writer, infos []AdapterInfo, jsonFormat bool) error {
	if jsonFormat {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tADAPTER\tSEGMENTS\tIMAGE\tPRIVATE MESSAGE")
	for _, info := range infos {
		image := "no"
		if info.Image {
			image = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", info.Kind, info.Name, info.Segments, image, info.PrivateMessage)
	}
	return w.Flush()
}

func init() {
	adaptersCmd.Flags().BoolVar(&adaptersJSON, "json", false, "Output in JSON format")
}
