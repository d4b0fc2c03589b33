package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/promptlab/internal/domain/extract"
)

const (
	defaultClassifyText = "உங்களையே நம்புங்கள்"
	defaultExtractText  = "My name is Jeff, my hair is black and I am 6 feet tall. " +
		"Anna has the same color hair as me. I feel very happy today."
)

func (a *app) analyzer() (*extract.Analyzer, error) {
	provider, err := a.chatProvider(false)
	if err != nil {
		return nil, err
	}
	return extract.NewAnalyzer(provider, a.cfg.ChatModel(a.cfg.LLMProvider), a.logger), nil
}

func outputFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVarP(format, "output", "o", "json", "output format: json or yaml")
}

func checkFormat(format string) error {
	if format != "json" && format != "yaml" {
		return &usageError{err: fmt.Errorf("--output must be json or yaml, got %q", format)}
	}
	return nil
}

func (a *app) classifyCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify sentiment, aggressiveness and language of a passage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}
			text, err := a.readInput(args, defaultClassifyText)
			if err != nil {
				return err
			}
			c, err := analyzer.Classify(commandContext(cmd), text)
			if err != nil {
				return err
			}
			return extract.Write(a.out, format, c)
		},
	}
	outputFlag(cmd, &format)
	return cmd
}

func (a *app) extractCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "extract [text...]",
		Short: "Classify a passage and extract the people it mentions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}
			text, err := a.readInput(args, defaultExtractText)
			if err != nil {
				return err
			}
			res, err := analyzer.Analyze(commandContext(cmd), text)
			if err != nil {
				return err
			}
			return extract.Write(a.out, format, res)
		},
	}
	outputFlag(cmd, &format)
	return cmd
}
