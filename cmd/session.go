package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/vesselvision-cli/internal/session"
	"github.com/KaramelBytes/vesselvision-cli/internal/utils"
)

var (
	smClear bool
	smFull  bool
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"sessions"},
	Short:   "Manage chat sessions over noon report files",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		root, err := sessionsDir()
		if err != nil {
			return err
		}
		dir := session.Dir(root, name)
		// Refuse to overwrite an existing session.
		if _, err := session.Load(dir); err == nil {
			return fmt.Errorf("session already exists at %s", dir)
		}
		if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
			return fmt.Errorf("directory %s already exists and is not empty; refusing to create session", dir)
		}
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
		if err := session.New(name, dir).Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Session created: %s\n", dir)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := sessionsDir()
		if err != nil {
			return err
		}
		names, err := session.List(root)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintln(out, "(no sessions)")
			return nil
		}
		for _, n := range names {
			fmt.Fprintf(out, "- %s\n", n)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show files, chat topics and the visible conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session: %s (%s)\n", s.Name, s.ID)
		if s.Config.Model != "" {
			fmt.Fprintf(out, "Model: %s\n", s.Config.Model)
		}
		fmt.Fprintln(out, "\nFiles:")
		if len(s.Files) == 0 {
			fmt.Fprintln(out, "  (no files; add some with 'vesselvision load')")
		}
		for _, f := range s.Files {
			sheet := ""
			if f.Sheet != "" {
				sheet = " [" + f.Sheet + "]"
			}
			fmt.Fprintf(out, "  - %s%s: %d rows × %d columns\n", f.Name, sheet, f.Rows, f.Columns)
		}

		fmt.Fprintln(out, "\nChat topics:")
		topics := s.Topics()
		if len(topics) == 0 {
			fmt.Fprintln(out, "  (no questions yet)")
		}
		for i, t := range topics {
			marker := " "
			if s.Selected != nil && *s.Selected == i {
				marker = "▶"
			}
			fmt.Fprintf(out, " %s %d. %s\n", marker, i+1, t)
		}

		visible := s.Visible()
		if len(visible) == 0 {
			return nil
		}
		if s.Selected != nil {
			fmt.Fprintln(out, "\nSelected chat:")
		} else {
			fmt.Fprintln(out, "\nChat history (newest first):")
		}
		for _, e := range visible {
			fmt.Fprintf(out, "\n🧑 %s\n", e.Question)
			text := e.Answer
			if !smFull {
				text = utils.TruncateRunes(text, 600)
			}
			fmt.Fprintf(out, "🤖 %s\n", renderMarkdown(text))
		}
		return nil
	},
}

var sessionSelectCmd = &cobra.Command{
	Use:   "select <name> <topic-number>",
	Short: "Show only one earlier exchange (numbers as listed by 'session show')",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(args[0])
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid topic number: %s", args[1])
		}
		if err := s.Select(n - 1); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Selected: %s\n", s.Topics()[n-1])
		return nil
	},
}

var sessionDeselectCmd = &cobra.Command{
	Use:     "deselect <name>",
	Aliases: []string{"new-chat"},
	Short:   "Start a new chat view (history is kept)",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(args[0])
		if err != nil {
			return err
		}
		s.Deselect()
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Started a new chat")
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <name>",
	Short: "Clear the chat history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(args[0])
		if err != nil {
			return err
		}
		s.ClearHistory()
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Chat history cleared")
		return nil
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a session and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := sessionsDir()
		if err != nil {
			return err
		}
		if err := session.Remove(root, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted session %s\n", args[0])
		return nil
	},
}

var sessionRemoveFileCmd = &cobra.Command{
	Use:   "remove-file <name> <file>",
	Short: "Detach a file from a session (by file name or id)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(args[0])
		if err != nil {
			return err
		}
		if !s.RemoveFile(args[1]) {
			return fmt.Errorf("file %q is not attached to session %s", args[1], s.Name)
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s from %s\n", args[1], s.Name)
		return nil
	},
}

var sessionSetModelCmd = &cobra.Command{
	Use:   "set-model <name> [model]",
	Short: "Set or clear a session's default model",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession(args[0])
		if err != nil {
			return err
		}
		if smClear {
			s.Config.Model = ""
		} else {
			if len(args) < 2 || args[1] == "" {
				return fmt.Errorf("model is required unless --clear is set")
			}
			s.Config.Model = args[1]
		}
		if err := s.Save(); err != nil {
			return err
		}
		if smClear {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared session model for %s\n", s.Name)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Set session model for %s: %s\n", s.Name, s.Config.Model)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionNewCmd, sessionListCmd, sessionShowCmd, sessionSelectCmd,
		sessionDeselectCmd, sessionClearCmd, sessionDeleteCmd, sessionRemoveFileCmd, sessionSetModelCmd)

	sessionShowCmd.Flags().BoolVar(&smFull, "full", false, "print full answers instead of a preview")
	sessionSetModelCmd.Flags().BoolVar(&smClear, "clear", false, "clear the session's model override")
}
