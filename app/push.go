package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskly/pkg/webpush"
)

func newPushCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Настройка web push",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate-vapid-keys",
		Short: "Сгенерировать пару VAPID-ключей",
		Long:  "Печатает ключи в формате .env. Их можно сохранить в окружении или через PUT /api/settings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", keys.PublicKey)
			fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", keys.PrivateKey)
			return nil
		},
	})
	return cmd
}
