package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/internal/secure"
	"github.com/systmms/rotor/pkg/rotation"
)

func NewInitializeCommand(cfg *config.Config) *cobra.Command {
	var (
		whatIf bool
		force  bool
		value  string
	)

	cmd := &cobra.Command{
		Use:   "initialize [resource...]",
		Short: "Create the first generation of a credential",
		Long: `Initialize creates the initial credential for each named resource (or
all resources when none are named) and writes it to the configured secret
store. Resources whose secret already exists are skipped unless --force.

For manual/generic resources the initial value is supplied with --value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := rotation.Flags{WhatIf: whatIf, Force: force}

			if value != "" {
				// Hold the supplied secret in locked memory for the run
				// and seal it before the process exits.
				buf := secure.NewBufferFromString(value)
				defer buf.Seal()

				secretValue, err := buf.String()
				if err != nil {
					return err
				}
				flags.SecretValue = secretValue
			}

			return runVerb(cmd.Context(), cfg, rotation.VerbInitialize, flags, args)
		},
	}

	cmd.Flags().BoolVar(&whatIf, "what-if", false, "Report what would change without changing anything")
	cmd.Flags().BoolVar(&force, "force", false, "Initialize even when the secret already exists")
	cmd.Flags().StringVar(&value, "value", "", "Initial secret value for manual/generic resources")

	return cmd
}
