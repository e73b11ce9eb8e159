package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storyteller-admin/internal/service"
	"storyteller-admin/internal/textchunk"
)

func newChunkCommand() *cobra.Command {
	var maxLength int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "chunk [text...]",
		Short: "Show how text is split for long-form speech",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			chunks := textchunk.Split(text, maxLength)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), chunks)
			}

			out := cmd.OutOrStdout()
			for i, chunk := range chunks {
				fmt.Fprintf(out, "%3d  %4d  %s\n", i+1, len([]rune(chunk)), chunk)
			}
			fmt.Fprintf(out, "%d chunk(s)\n", len(chunks))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxLength, "max", textchunk.DefaultMaxChunkLength, "Maximum characters per chunk")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print chunks as a JSON array")
	return cmd
}

func newLangCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lang [text...]",
		Short: "Detect the prompt language and the voice provider it selects",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Language: %s\n", textchunk.DetectLanguage(text))
			fmt.Fprintf(out, "Voice:    %s\n", service.VoiceFor(text))
			return nil
		},
	}
}
