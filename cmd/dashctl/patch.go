package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dashboardWs/internal/modules/dashboard/infrastructure"
)

var patchCmd = &cobra.Command{
	Use:   "patch DOCUMENT PATCH",
	Short: "Apply an RFC 6902 patch to a data document",
	Long:  `Applies every operation of PATCH to DOCUMENT and prints the result. Nothing is printed when any operation fails.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := infrastructure.LoadDocumentFile(args[0])
		if err != nil {
			return err
		}
		patch, err := infrastructure.LoadPatchFile(args[1])
		if err != nil {
			return err
		}
		next, err := doc.Apply(patch)
		if err != nil {
			return err
		}
		if digest, _ := cmd.Flags().GetBool("digest"); digest {
			sum, err := next.Digest()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sum)
			return err
		}
		return printJSON(cmd.OutOrStdout(), next)
	},
}

func init() {
	rootCmd.AddCommand(patchCmd)
	patchCmd.Flags().Bool("digest", false, "Print the digest (ETag) of the result instead of the document")
}
