package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/docqa/internal/config"
	"github.com/kalambet/docqa/internal/documents"
)

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload files to the backend, one at a time",
	Long: `Upload files to the backend, one at a time, in the order given.

A file that fails does not stop the rest of the batch. The command fails
only when every file failed.

Examples:
  docqa upload ./q3-report.pdf
  docqa upload ./a.pdf ./b.pdf ./notes.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}

		files := documents.LocalFiles(args)
		for _, f := range files {
			info, err := documents.Inspect(f)
			if err != nil {
				continue
			}
			if info.IsPDF() && info.Pages > 0 {
				printStep("%s (%s, %d pages, %s)", info.Name, info.MIME, info.Pages, formatSize(info.Size))
			} else {
				printStep("%s (%s, %s)", info.Name, info.MIME, formatSize(info.Size))
			}
		}

		out := cmd.OutOrStdout()
		s.pipeline.OnProgress(func(index, total int, o documents.Outcome) {
			if o.OK() {
				printSuccess("[%d/%d] %s", index+1, total, o.FileName)
				fmt.Fprintf(out, "%s\t%s\n", o.Document.FileID, o.FileName)
			} else {
				printError("[%d/%d] %s: %v", index+1, total, o.FileName, o.Err)
			}
		})

		s.pipeline.SelectFiles(files)
		result, err := s.pipeline.UploadSelected(cmd.Context())
		if err != nil {
			return err
		}

		switch result.Status {
		case documents.BatchAllSucceeded:
			printSuccess("%s", result.Message())
		case documents.BatchPartial:
			printWarning("%s", result.Message())
		case documents.BatchAllFailed:
			return errors.New(strings.ToLower(strings.TrimSuffix(result.Message(), ".")))
		}
		return nil
	},
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>...",
	Short: "Ask a question about the uploaded documents",
	Long: `Ask a question about the uploaded documents.

The answer is printed first, followed by the document chunks it cites.

Examples:
  docqa ask "What was revenue in Q3?"
  docqa ask what does the handbook say about travel`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}

		turn, ok := s.engine.SubmitQuestion(cmd.Context(), strings.Join(args, " "))
		if !ok {
			return errors.New("question must not be blank")
		}
		if turn.Failed {
			printError("%s", turn.Text)
			return errors.New("could not get a response from the backend")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, turn.Text)
		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize(colorBold, "References:"))
		fmt.Fprintln(out, s.panel.Render())
		return nil
	},
}

// --- delete ---

var deleteCmd = &cobra.Command{
	Use:   "delete <file-id>",
	Short: "Delete an uploaded document from the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		id := args[0]
		if name == "" {
			name = id
		}

		s, err := newSession()
		if err != nil {
			return err
		}

		s.pipeline.Adopt(documents.Document{FileName: name, FileID: id})
		if err := s.pipeline.DeleteDocument(cmd.Context(), id); err != nil {
			return err
		}
		printSuccess("%s", s.pipeline.Status())
		return nil
	},
}

// --- link ---

var linkCmd = &cobra.Command{
	Use:   "link <file-id> <file-name>",
	Short: "Print the download URL of an uploaded document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s.pipeline.DownloadLink(args[0], args[1]))
		return nil
	},
}

func init() {
	deleteCmd.Flags().String("name", "", "file name of the document, used in messages")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value.\n\nValid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a stored configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

func writeTranscript(w io.Writer, s *session) error {
	return s.engine.ExportJSONL(w)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
