// AngelaMos | 2026
// files.go

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/filestore"
)

var fileStorePath string

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Inspect the local PDF store used when no bucket is configured",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored files, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := filestore.Open(fileStorePath)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck // read-only command

		files, err := store.List(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFILENAME\tSIZE\tUPLOADED")
		for _, f := range files {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				f.ID, f.Filename, core.FormatFileSize(f.Size), f.UploadedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete stored files by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := filestore.Open(fileStorePath)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck // nothing left to flush

		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	filesCmd.PersistentFlags().StringVar(&fileStorePath, "path", "data/files.db", "file store database path")
	filesCmd.AddCommand(filesListCmd, filesDeleteCmd)
}
