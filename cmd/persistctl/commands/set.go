package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func setCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY JSON",
		Short: "Store a JSON value under KEY",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v any
			if err := json.Unmarshal([]byte(args[1]), &v); err != nil {
				return fmt.Errorf("value is not JSON: %w", err)
			}
			w, err := st.open()
			if err != nil {
				return err
			}
			data, err := w.Persister.Serializer().Serialize(v)
			if err != nil {
				return err
			}
			w.Storage.SetValue(args[0], data)
			return nil
		},
	}
}
