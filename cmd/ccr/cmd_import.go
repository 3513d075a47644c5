package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/importer"
)

var importFooters bool

var importCmd = &cobra.Command{
	Use:   "import [file or directory]",
	Short: "Import hourly reading documents",
	Long: `Imports a JSON reading document, or every document of a directory, into
the database. With --footers the footer of each imported date is regenerated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		return withManager(cmd.Context(), func(m *services.Manager) error {
			var imported []*importer.Imported
			if info.IsDir() {
				imported, err = importer.ImportDir(cmd.Context(), m.Database(), path)
			} else {
				var one *importer.Imported
				one, err = importer.ImportFile(cmd.Context(), m.Database(), path)
				if one != nil {
					imported = append(imported, one)
				}
			}
			if err != nil {
				return err
			}

			if importFooters {
				for _, im := range imported {
					if _, err := m.GenerateFooter(cmd.Context(), im.Date, im.PlantUnit); err != nil {
						return fmt.Errorf("footer %s %s: %w", im.Date, im.PlantUnit, err)
					}
				}
			}

			return printResult(cmd.OutOrStdout(), imported, func() string {
				lines := make([]string, 0, len(imported))
				for _, im := range imported {
					lines = append(lines, fmt.Sprintf("%s: %d readings for %s %s", im.Path, im.Count, im.PlantUnit, im.Date))
				}
				if len(lines) == 0 {
					return "nothing imported"
				}
				return strings.Join(lines, "\n")
			})
		})
	},
}

func init() {
	importCmd.Flags().BoolVar(&importFooters, "footers", false, "Regenerate the footers of imported dates")
}
