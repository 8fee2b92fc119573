// Command classroomctl administers a classroom database: migrations,
// default data and accounts.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "classroomctl",
		Short:        "Administer the classroom database",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "log at debug level")

	rootCmd.AddCommand(
		newMigrateCmd(a),
		newSeedCmd(a),
		newCreateUserCmd(a),
		newCreateStudentsCmd(a),
		newEventsCmd(a),
	)
	return rootCmd
}
