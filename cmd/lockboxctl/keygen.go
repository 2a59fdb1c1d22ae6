package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lockbox/lockbox/internal/auth"
)

func newKeygenCmd() *cobra.Command {
	var envFormat bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate ENCRYPTION_KEY and JWT_SECRET values",
		Long: `Generates a fresh 32-byte ENCRYPTION_KEY and a JWT_SECRET from the
system CSPRNG, base64 encoded.

Store them in your secret manager. Changing ENCRYPTION_KEY later makes
existing secrets unreadable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := auth.GenerateKeys()
			if err != nil {
				return fmt.Errorf("generate keys: %w", err)
			}

			out := cmd.OutOrStdout()
			if envFormat {
				fmt.Fprintf(out, "ENCRYPTION_KEY=%s\n", keys.EncryptionKey)
				fmt.Fprintf(out, "JWT_SECRET=%s\n", keys.SigningKey)
				return nil
			}

			fmt.Fprintf(out, "%s %s\n", highlight.Sprint("ENCRYPTION_KEY"), keys.EncryptionKey)
			fmt.Fprintf(out, "%s     %s\n", highlight.Sprint("JWT_SECRET"), keys.SigningKey)
			printWarning(out, "These values are shown once. Store them securely.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&envFormat, "env", false, "print as KEY=value lines")
	return cmd
}
