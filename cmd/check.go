package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/socialrelay/internal/app"
	"github.com/JakeFAU/socialrelay/internal/config"
	"github.com/JakeFAU/socialrelay/internal/relay"
	"github.com/JakeFAU/socialrelay/internal/relay/reddit"
)

func newCheckCmd() *cobra.Command {
	var redditToken bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Reports which platform credentials are configured",
		Long: `Prints, per platform, whether every credential variable is set. With
--reddit-token it also performs the Reddit password-grant token exchange
(nothing is posted) to prove the credentials work.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			missing := map[relay.Platform][]string{
				relay.Telegram: app.TelegramConfig(rt.cfg).Missing(),
				relay.Reddit:   app.RedditConfig(rt.cfg).Missing(),
			}
			printCredentialReport(out, missing)

			if !redditToken {
				return nil
			}
			return checkRedditToken(cmd, rt.cfg, out)
		},
	}
	cmd.Flags().BoolVar(&redditToken, "reddit-token", false, "exchange Reddit credentials for an access token")
	return cmd
}

func printCredentialReport(out io.Writer, missing map[relay.Platform][]string) {
	for _, p := range relay.Platforms() {
		if vars := missing[p]; len(vars) > 0 {
			fmt.Fprintf(out, "%s: missing %s\n", p.Label(), strings.Join(vars, ", "))
			continue
		}
		fmt.Fprintf(out, "%s: configured\n", p.Label())
	}
}

func checkRedditToken(cmd *cobra.Command, cfg config.Config, out io.Writer) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	pub := reddit.New(app.RedditConfig(cfg), nil, rt.logger.Named("reddit"))
	if _, err := pub.AccessToken(cmd.Context()); err != nil {
		fmt.Fprintf(out, "Reddit token exchange: Failed - %s\n", relay.FailureReason(err))
		return fmt.Errorf("reddit token exchange: %w", err)
	}
	fmt.Fprintln(out, "Reddit token exchange: Success")
	return nil
}
