package commands

import (
	"github.com/spf13/cobra"
)

func deleteCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:     "delete KEY",
		Aliases: []string{"rm"},
		Short:   "Remove the value stored under KEY",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := st.open()
			if err != nil {
				return err
			}
			w.Storage.DeleteValue(args[0])
			return nil
		},
	}
}
