package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"persistentstore/pkg/encryption"
)

// keygen: print a random key, or derive one from --passphrase.
func keygenCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an encryption key",
		Long:  "Without --passphrase, prints a random key for --key. With --passphrase, derives the key and prints the salt to pass as --salt next time.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			enc := st.cfg.Encryption

			if enc.Passphrase == "" {
				key, err := encryption.GenerateKey()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "key: %s\nfingerprint: %s\n", key, encryption.Fingerprint(key))
				return nil
			}

			salt := enc.Salt
			if salt == "" {
				var err error
				if salt, err = encryption.GenerateSalt(); err != nil {
					return err
				}
			}
			key, err := encryption.KeyFromPassphrase(enc.Passphrase, salt, encryption.KDF(enc.KDF))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "salt: %s\nkdf: %s\nfingerprint: %s\n", salt, enc.KDF, encryption.Fingerprint(key))
			return nil
		},
	}
}
