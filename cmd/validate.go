package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/larkmcp/feishu-tasks/internal/feishu"
)

func newValidateCmd() *cobra.Command {
	var (
		appID     string
		appSecret string
		timeZone  string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the configured Feishu credentials work",
		Long: `Validate the configured app credentials by requesting a tenant access
token from the Feishu open platform, and check that the configured time zone
is a known IANA zone.

Credentials are resolved the same way as for serve: flags first, then
FEISHU_APP_ID / FEISHU_APP_SECRET / FEISHU_TIME_ZONE environment variables,
with a .env file loaded if present.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			feishuConfig, err := resolveFeishuConfig(appID, appSecret, timeZone)
			if err != nil {
				return err
			}

			client, err := feishu.NewClient(feishuConfig.AppID, feishuConfig.AppSecret, feishuConfig.TimeZone)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			if err := client.Validate(ctx); err != nil {
				return err
			}

			fmt.Printf("Credentials OK (app %s, time zone %s)\n", feishuConfig.AppID, client.TimeZone())
			return nil
		},
	}

	cmd.Flags().StringVar(&appID, "app-id", "", "Feishu app ID. Can also use FEISHU_APP_ID env var.")
	cmd.Flags().StringVar(&appSecret, "app-secret", "", "Feishu app secret. Can also use FEISHU_APP_SECRET env var.")
	cmd.Flags().StringVar(&timeZone, "time-zone", "", "IANA time zone to validate. Can also use FEISHU_TIME_ZONE env var.")

	return cmd
}
