package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/internal/secure"
	"github.com/systmms/rotor/pkg/rotation"
)

func NewRotateCommand(cfg *config.Config) *cobra.Command {
	var (
		whatIf bool
		force  bool
		value  string
	)

	cmd := &cobra.Command{
		Use:   "rotate [resource...]",
		Short: "Rotate credentials that are due",
		Long: `Rotate replaces the credential for each named resource (or all resources
when none are named) and writes the new generation to the configured secret
store. Resources whose expiration is outside the overlap window are skipped
unless --force.

For manual/generic resources the replacement value is supplied with --value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := rotation.Flags{WhatIf: whatIf, Force: force}

			if value != "" {
				buf := secure.NewBufferFromString(value)
				defer buf.Seal()

				secretValue, err := buf.String()
				if err != nil {
					return err
				}
				flags.SecretValue = secretValue
			}

			return runVerb(cmd.Context(), cfg, rotation.VerbRotate, flags, args)
		},
	}

	cmd.Flags().BoolVar(&whatIf, "what-if", false, "Report what would change without changing anything")
	cmd.Flags().BoolVar(&force, "force", false, "Rotate even when the secret is not yet due")
	cmd.Flags().StringVar(&value, "value", "", "Replacement secret value for manual/generic resources")

	return cmd
}
