package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/domain"
	"github.com/spigell/labconnect/internal/labs"
	"github.com/spigell/labconnect/internal/matching"
	"github.com/spigell/labconnect/internal/resume"
)

const (
	PromptTopMatches = "Show top matches"
	PromptLabDetails = "Show lab by ID"
	PromptDumpToFile = "Dump results to file"
	PromptReport     = "Report by departments"
	PromptExit       = "Exit"

	topMatchesCount = 5
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptTopMatches, PromptLabDetails, PromptReport, PromptDumpToFile, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match <path|s3://bucket/key>",
	Short: "Rank labs against a resume image or document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		match(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().BoolP("yes", "y", false, "print the ranking and exit without the interactive menu")
}

func match(cmd *cobra.Command, ref string) {
	ctx := context.Background()

	logger, config := setup("match")

	loader := resume.NewLoader(logger)
	if strings.HasPrefix(ref, "s3://") {
		if config.Storage == nil || config.Storage.S3 == nil {
			logger.Fatal("s3 storage is not configured", zap.String("hint", "set storage.s3 in the configuration file"))
		}
		var err error
		if loader, err = loader.WithS3(ctx, *config.Storage.S3); err != nil {
			logger.Fatal("configuring s3 storage", zap.Error(err))
		}
	}

	doc, err := loader.Load(ctx, ref)
	if err != nil {
		logger.Fatal("loading resume", zap.Error(err), zap.String("ref", ref))
	}

	source, closeSource, err := newLabsSource(ctx, config.Labs, logger)
	if err != nil {
		logger.Fatal("creating labs source", zap.Error(err))
	}
	defer closeSource()

	assistant, err := newAssistant(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating ai assistant", zap.Error(err))
	}

	results, err := matching.New(assistant, source, logger).Match(ctx, doc)
	if err != nil {
		logger.Fatal("matching failed",
			zap.String("message", matching.Message(err)),
			zap.Stringer("kind", matching.KindOf(err)),
			zap.Error(err),
		)
	}

	logger.Info("resume details",
		zap.String("major", results.Details.Major),
		zap.String("keywords", results.Details.Keywords),
	)
	printResults(results.Items)

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, results); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, results *labs.Results) error {
	switch action {
	case PromptTopMatches:
		top := results.Top(topMatchesCount)
		logger.Info("top matches", zap.Int("count", len(top)))
		printResults(top)
		return nil
	case PromptLabDetails:
		id, err := askLabID()
		if err != nil {
			return err
		}
		if !showLab(logger, results, id) {
			logger.Warn("lab is not in the results", zap.Int64("lab_id", id))
		}
		return nil
	case PromptReport:
		pretty, _ := json.MarshalIndent(results.ReportByDepartment(), "", "  ")
		logger.Info(string(pretty), zap.Int("labs count", results.Len()))
		return nil
	case PromptDumpToFile:
		filename, err := results.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func askLabID() (int64, error) {
	idPrompt := promptui.Prompt{
		Label: "Lab ID",
		Validate: func(input string) error {
			_, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
			return err
		},
	}

	input, err := idPrompt.Run()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(input), 10, 64)
}

// showLab prints one ranked lab with its full description.
func showLab(logger *zap.Logger, results *labs.Results, id int64) bool {
	lab := results.FindByID(id)
	if lab == nil {
		return false
	}

	logger.Info("lab details", zap.Int64("lab_id", lab.ID))
	printResults([]domain.LabAnalysis{*lab})
	fmt.Printf("    Department: %s\n", lab.Department)
	fmt.Printf("    Contact: %s\n", lab.Contact)
	if lab.Description != "" {
		fmt.Printf("    Description: %s\n", lab.Description)
	}
	return true
}

func printResults(items []domain.LabAnalysis) {
	for i, lab := range items {
		score := "-"
		if lab.HasScore() {
			score = fmt.Sprintf("%d/5", lab.ScoreOrZero())
		}

		line := fmt.Sprintf("%2d. %s (%s) score %s", i+1, lab.LabName, lab.ProfessorName, score)
		if lab.IsTopMatch() {
			line += "  Top Match"
		}
		fmt.Println(line)

		if reason := lab.Reason(); reason != "" {
			fmt.Printf("    Matching Factors: %s\n", reason)
		}
		if lab.HowToApply != "" {
			fmt.Printf("    How to apply: %s\n", lab.HowToApply)
		}
	}
}
