package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"dashboardWs/internal/modules/dashboard/infrastructure"
)

var validateCmd = &cobra.Command{
	Use:   "validate LAYOUT...",
	Short: "Check layout files",
	Long:  `Decodes each JSON or YAML layout, checks its pointers and required fields, and compiles every disabled condition.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eval, err := infrastructure.NewCELConditionEvaluator()
		if err != nil {
			return err
		}
		var errs []error
		for _, path := range args {
			if err := validateLayout(eval, path); err != nil {
				errs = append(errs, err)
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: invalid\n%v\n", path, err)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateLayout(eval *infrastructure.CELConditionEvaluator, path string) error {
	layout, err := infrastructure.LoadLayoutFile(path)
	if err != nil {
		return err
	}
	return errors.Join(layout.Validate(), eval.CheckConditions(layout))
}
