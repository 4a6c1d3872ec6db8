// AngelaMos | 2026
// keys.go

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studyvault/studyvault/internal/auth"
)

var (
	privateKeyPath string
	publicKeyPath  string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the API token signing keys",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a new ES256 key pair",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := auth.GenerateKeyPair(privateKeyPath, publicKeyPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", privateKeyPath, publicKeyPath)
		return nil
	},
}

func init() {
	keysGenerateCmd.Flags().StringVar(&privateKeyPath, "private", "keys/private.pem", "private key output path")
	keysGenerateCmd.Flags().StringVar(&publicKeyPath, "public", "keys/public.pem", "public key output path")
	keysCmd.AddCommand(keysGenerateCmd)
}
