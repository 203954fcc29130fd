package main

import (
	"github.com/spf13/cobra"

	"dashboardWs/internal/modules/dashboard/application/usecase"
	"dashboardWs/internal/modules/dashboard/domain"
	"dashboardWs/internal/modules/dashboard/infrastructure"
)

var renderCmd = &cobra.Command{
	Use:   "render LAYOUT [DOCUMENT]",
	Short: "Resolve a layout against a data document",
	Long:  `Prints the resolved views of LAYOUT. Without DOCUMENT every pointer resolves to "data unavailable".`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := infrastructure.LoadLayoutFile(args[0])
		if err != nil {
			return err
		}
		var doc domain.Document
		if len(args) == 2 {
			if doc, err = infrastructure.LoadDocumentFile(args[1]); err != nil {
				return err
			}
		}
		eval, err := infrastructure.NewCELConditionEvaluator()
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), usecase.NewViewResolver(eval).Resolve(layout, doc))
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
