package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/service"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

func newVocabularyCmd(opts *rootOptions) *cobra.Command {
	var file string

	load := func() (*vocabulary.Table, error) {
		if file == "" {
			return vocabulary.Default()
		}
		return vocabulary.LoadFile(file)
	}

	cmd := &cobra.Command{
		Use:   "vocabulary",
		Short: "Inspect or validate the condition vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			vocab, err := load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", vocab.Version)
			fmt.Fprintf(out, "conditions: %d\n", len(vocab.Conditions))
			for _, c := range vocab.Conditions {
				fmt.Fprintf(out, "  %-24s %d phrases\n", c.Tag, len(c.Phrases()))
			}
			fmt.Fprintf(out, "ingredient classes: %d\n", len(vocab.IngredientClasses))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&file, "file", "", "vocabulary YAML to load instead of the embedded table")

	cmd.AddCommand(&cobra.Command{
		Use:   "match <text>",
		Short: "Print the condition tags detected in free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vocab, err := load()
			if err != nil {
				return err
			}
			tags := service.NewProfileNormalizer(vocab).MatchTags(strings.Join(args, " "))
			if tags.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), "no conditions detected")
				return nil
			}
			for _, tag := range tags.Tags() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tag, displayName(vocab, tag))
			}
			return nil
		},
	})
	return cmd
}

func displayName(vocab *vocabulary.Table, tag domain.ConditionTag) string {
	for _, c := range vocab.Conditions {
		if c.Tag == tag && c.Display != "" {
			return c.Display
		}
	}
	return tag.Phrase()
}
