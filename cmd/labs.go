package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var labsCmd = &cobra.Command{
	Use:   "labs",
	Short: "List every lab in the table",
	Run: func(cmd *cobra.Command, _ []string) {
		listLabs(cmd)
	},
}

func init() {
	rootCmd.AddCommand(labsCmd)

	labsCmd.Flags().Bool("raw", false, "print labs as json")
}

func listLabs(cmd *cobra.Command) {
	ctx := context.Background()

	logger, config := setup("labs")

	source, closeSource, err := newLabsSource(ctx, config.Labs, logger)
	if err != nil {
		logger.Fatal("creating labs source", zap.Error(err))
	}
	defer closeSource()

	records, err := source.All(ctx)
	if err != nil {
		logger.Fatal("getting labs", zap.Error(err))
	}

	logger.Info("getting labs", zap.Int("count", len(records)))

	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		pretty, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(pretty))
		return
	}

	for _, lab := range records {
		fmt.Printf("[%d] %s\n", lab.ID, lab.LabName)
		fmt.Printf("    Professor: %s\n", lab.ProfessorName)
		fmt.Printf("    Department: %s\n", lab.Department)
		if lab.Contact != "" {
			fmt.Printf("    Contact: %s\n", lab.Contact)
		}
		if lab.HowToApply != "" {
			fmt.Printf("    How to apply: %s\n", lab.HowToApply)
		}
	}
}
