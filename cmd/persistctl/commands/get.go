package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func getCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print a stored value as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := st.open()
			if err != nil {
				return err
			}
			raw, ok := w.Storage.GetValue(args[0])
			if !ok {
				return fmt.Errorf("%q not found", args[0])
			}
			var v any
			if err := w.Persister.Serializer().Deserialize(raw, &v); err != nil {
				return fmt.Errorf("decode %q: %w", args[0], err)
			}
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
