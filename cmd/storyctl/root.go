// Command storyctl is the operator CLI for the admin BFF: it previews TTS
// chunking and language detection, decodes session tokens and lists pipeline
// runs that left orphaned CDN assets.
package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newRootCommand(openJournal journalOpener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "storyctl",
		Short:         "StoryTeller admin operator tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newChunkCommand())
	rootCmd.AddCommand(newLangCommand())
	rootCmd.AddCommand(newRoleCommand())
	rootCmd.AddCommand(newOrphansCommand(openJournal))

	return rootCmd
}

// inputText joins args, or reads stdin when there are none or the only arg
// is "-".
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
