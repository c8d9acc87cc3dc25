package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/cognicore/plantag/pkg/plantag"
	"github.com/cognicore/plantag/pkg/plantag/internalerr"
)

var classifyDiscipline string

var classifyCmd = &cobra.Command{
	Use:   "classify TAG...",
	Short: "Classify tags given on the command line",
	Long: `Classify each TAG and print its outcome as indented JSON.

An empty tag is reported like any other item; it ends up in MdbLimbo.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyDiscipline, "discipline", "d", "", "Discipline of the items (default: from the tag)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for _, tag := range args {
		o, err := s.engine.Process(cmd.Context(), plantag.Item{Tag: tag, Discipline: classifyDiscipline})
		if err != nil && !errors.Is(err, internalerr.ErrHardInput) {
			return err
		}
		if err := enc.Encode(o); err != nil {
			return err
		}
	}
	return nil
}
