package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/plantag/pkg/plantag/config"
	"github.com/cognicore/plantag/pkg/plantag/registry"
	"github.com/cognicore/plantag/pkg/plantag/store/sqlite"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy the registry files into the database",
	Long: `Validate the registry files in --registry and replace the registry set
stored in --db with them. Invalid files leave the database untouched.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return fmt.Errorf("import needs --db")
	}
	ctx := cmd.Context()

	l, err := config.DirLoader(registryDir)
	if err != nil {
		return err
	}
	parts, err := l.Parts()
	if err != nil {
		return err
	}
	// Refuse to store a set that would not load.
	if _, err := registry.Build(parts); err != nil {
		return err
	}

	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ImportRegistry(ctx, parts); err != nil {
		return err
	}
	logger.Info("registries imported",
		zap.String("db", dbPath),
		zap.Int("codes", len(parts.Codification)),
		zap.Int("patterns", len(parts.Patterns)),
		zap.Int("disciplines", len(parts.Hierarchy)))
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d codes, %d patterns, %d disciplines, %d entities, %d hierarchies\n",
		len(parts.Codification), len(parts.Patterns), len(parts.Disciplines), len(parts.Entities), len(parts.Hierarchy))
	return nil
}
