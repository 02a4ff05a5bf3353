package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/soapywu/xbar/pbxproj"
)

func newDumpCommand(out io.Writer) *cobra.Command {
	var key, target, configuration string

	cmd := &cobra.Command{
		Use:   "dump <path>",
		Short: "Print a parsed project as JSON, or one build setting with --key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := pbxproj.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if target != "" && !project.HasTarget(target) && target != project.Name() {
				return usageError(fmt.Errorf("no target %q in %s", target, project.Path()))
			}
			if key == "" {
				return project.Dump(out)
			}
			value, ok := project.GetBuildProperty(key, configuration, target)
			if !ok {
				return fmt.Errorf("%s is not set", key)
			}
			_, err = fmt.Fprintln(out, value)
			return err
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "print only this build setting")
	cmd.Flags().StringVar(&target, "target", "", "restrict --key to configurations of this target")
	cmd.Flags().StringVar(&configuration, "configuration", "", "restrict --key to this configuration name")
	return cmd
}
