package main

import (
	"fmt"

	"github.com/hupe1980/bsvm/codec"
	"github.com/hupe1980/bsvm/config"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate a parameter file and print the normalized parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			p, err := config.Load(path)
			if err != nil {
				return err
			}
			p = p.Normalize(a.sink())

			data, err := codec.YAML{}.Marshal(p)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
