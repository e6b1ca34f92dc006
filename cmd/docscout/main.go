// Command docscout is a retrieval-augmented question answering agent over
// an indexed document corpus. It answers one-shot questions (ask), runs an
// interactive conversation (chat), and inspects glossary expansion
// (glossary). With --mock it serves from an in-memory index of local files
// instead of a real retrieval store.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docscout/internal/answer"
	"docscout/internal/backend"
	"docscout/internal/config"
	"docscout/internal/controller"
	"docscout/internal/glossary"
	"docscout/internal/logging"
)

var (
	flagConfig  string
	flagVerbose bool
	flagMock    bool
	flagDocs    string
	flagBackend string

	cfg *config.Config
)

func main() {
	root := &cobra.Command{
		Use:   "docscout",
		Short: "Retrieval-augmented question answering over an indexed corpus",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(flagConfig)
			if err != nil {
				return err
			}
			if flagBackend != "" {
				cfg.Backend.BaseURL = flagBackend
			}
			if err := logging.Initialize(cfg.Logging.Level, flagVerbose); err != nil {
				return err
			}
			logging.Get(logging.CategoryBoot).Infof("docscout starting (config=%s, mock=%v)", flagConfig, flagMock)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "docscout.yaml", "config file path")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&flagMock, "mock", false, "use the in-memory mock backend")
	root.PersistentFlags().StringVar(&flagDocs, "docs", "", "directory to index into the mock backend")
	root.PersistentFlags().StringVar(&flagBackend, "backend", "", "retrieval store base URL (overrides config)")

	root.AddCommand(newAskCmd(), newChatCmd(), newGlossaryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, gl, err := buildSession()
			if err != nil {
				return err
			}
			defer session.Close()
			startWatcher(cmd.Context(), gl)

			record, err := session.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printRecord(cmd, record)
			return nil
		},
	}
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation; one question per line, Ctrl-D to exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, gl, err := buildSession()
			if err != nil {
				return err
			}
			defer session.Close()
			startWatcher(cmd.Context(), gl)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			fmt.Fprintln(cmd.OutOrStdout(), "docscout ready. Ask away.")
			for {
				fmt.Fprint(cmd.OutOrStdout(), "> ")
				if !scanner.Scan() {
					break
				}
				query := strings.TrimSpace(scanner.Text())
				if query == "" {
					continue
				}
				if query == "exit" || query == "quit" {
					break
				}
				record, err := session.Ask(cmd.Context(), query)
				if err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), "error:", err)
					continue
				}
				printRecord(cmd, record)
			}
			return scanner.Err()
		},
	}
}

func newGlossaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "glossary <query>",
		Short: "Show how the glossary expands a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gl, err := glossary.Load(cfg.Glossary.Path)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			fmt.Fprintln(cmd.OutOrStdout(), "expanded:", gl.Expand(query))
			if direct, ok := gl.LookupAcronym(query); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "acronym: %s = %s\n", direct.Acronym, direct.Expansion)
				if direct.Definition != "" {
					fmt.Fprintln(cmd.OutOrStdout(), "definition:", direct.Definition)
				}
			}
			return nil
		},
	}
}

// buildSession wires the configured backend and glossary into a session.
func buildSession() (*controller.Session, *glossary.Glossary, error) {
	gl, err := glossary.Load(cfg.Glossary.Path)
	if err != nil {
		return nil, nil, err
	}

	var be backend.SearchBackend
	switch {
	case flagMock || cfg.Backend.BaseURL == "":
		mock := backend.NewMock(cfg.Backend.ProgressiveThreshold)
		if flagDocs != "" {
			if err := mock.LoadDirectory(flagDocs); err != nil {
				return nil, nil, fmt.Errorf("failed to index %s: %w", flagDocs, err)
			}
		}
		be = mock
	default:
		be = backend.NewHTTPBackend(cfg.Backend.BaseURL, cfg.BackendTimeout())
	}

	session, err := controller.New(cfg, be, gl)
	if err != nil {
		return nil, nil, err
	}
	return session, gl, nil
}

// startWatcher hot-reloads the glossary when configured to.
func startWatcher(ctx context.Context, gl *glossary.Glossary) {
	if !cfg.Glossary.WatchReload || gl.Path() == "" {
		return
	}
	w, err := glossary.NewWatcher(gl)
	if err != nil {
		logging.Glossary("Watcher disabled: %v", err)
		return
	}
	if err := w.Start(ctx); err != nil {
		logging.Glossary("Watcher disabled: %v", err)
	}
}

func printRecord(cmd *cobra.Command, record *answer.Record) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, record.Narrative)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Sources:")
	for _, src := range record.Sources {
		fmt.Fprintln(out, "  -", src)
	}
	fmt.Fprintln(out, "Confidence:", record.Confidence)
	for _, s := range record.Suggestions {
		fmt.Fprintln(out, "Suggestion:", s)
	}
}
