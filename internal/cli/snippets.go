package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/objgraph/pkg/errors"
	"github.com/matzehuels/objgraph/pkg/config"
	"github.com/matzehuels/objgraph/pkg/snippet"
)

func (c *CLI) snippetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snippets",
		Aliases: []string{"snippet"},
		Short:   "Manage saved snippets",
		Long: `Save, list, show and delete snippets. Snippets saved here are the ones the
playground lists when it runs with the same store.

The memory store does not outlive a command, so these commands use the file
store unless mongo is configured.`,
	}

	cmd.PersistentFlags().String("store", "", "snippet store: file or mongo")
	cmd.PersistentFlags().String("store-dir", "", "directory of the file store")

	cmd.AddCommand(c.snippetsListCommand())
	cmd.AddCommand(c.snippetsSaveCommand())
	cmd.AddCommand(c.snippetsShowCommand())
	cmd.AddCommand(c.snippetsRemoveCommand())

	return cmd
}

func (c *CLI) snippetsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved snippets, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd, func(ctx context.Context, store snippet.Store) error {
				list, err := store.List(ctx)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					printInfo("No saved snippets")
					printNextStep("Save one with", "objgraph snippets save <name> <file>")
					return nil
				}

				rows := make([][]string, 0, len(list))
				for _, s := range list {
					rows = append(rows, []string{s.ID, s.Name, snippetFlags(s), formatRelativeTime(s.CreatedAt)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Flags", "Saved"}, rows))
				return nil
			})
		},
	}
}

func (c *CLI) snippetsSaveCommand() *cobra.Command {
	var builtins, functions bool

	cmd := &cobra.Command{
		Use:   "save <name> <file|->",
		Short: "Save a snippet",
		Example: `  objgraph snippets save "prototype chain" chain.js --functions
  echo 'this.a = [1]' | objgraph snippets save tiny -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readCode(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			if err := apperrors.ValidateSnippetName(args[0]); err != nil {
				return err
			}
			if err := apperrors.ValidateCode(code); err != nil {
				return err
			}

			s, err := snippet.New(args[0], code)
			if err != nil {
				return err
			}
			s.ShowBuiltins = builtins
			s.ShowAllFunctions = functions

			return c.withStore(cmd, func(ctx context.Context, store snippet.Store) error {
				if err := store.Save(ctx, s); err != nil {
					return apperrors.Wrap(apperrors.ErrCodeStorage, err, "save snippet")
				}
				printSuccess("Saved %s", s.Name)
				fmt.Fprintln(cmd.OutOrStdout(), s.ID)
				printNextStep("Render it with", "objgraph eval --snippet "+s.ID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&builtins, "builtins", false, "store the snippet with built-in objects shown")
	cmd.Flags().BoolVar(&functions, "functions", false, "store the snippet with functions expanded")

	return cmd
}

func (c *CLI) snippetsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved snippet's code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apperrors.ValidateSnippetID(args[0]); err != nil {
				return err
			}
			return c.withStore(cmd, func(ctx context.Context, store snippet.Store) error {
				s, err := getSnippet(ctx, store, args[0])
				if err != nil {
					return err
				}
				printKeyValue("Name", s.Name)
				printKeyValue("Saved", s.CreatedAt.Local().Format("Jan 2, 2006 15:04"))
				if flags := snippetFlags(s); flags != "" {
					printKeyValue("Flags", flags)
				}
				printNewline()
				fmt.Fprint(cmd.OutOrStdout(), s.Code)
				return nil
			})
		},
	}
}

func (c *CLI) snippetsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a saved snippet",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apperrors.ValidateSnippetID(args[0]); err != nil {
				return err
			}
			return c.withStore(cmd, func(ctx context.Context, store snippet.Store) error {
				err := store.Delete(ctx, args[0])
				if errors.Is(err, snippet.ErrNotFound) {
					return apperrors.New(apperrors.ErrCodeSnippetNotFound, "no snippet with id %s", args[0])
				}
				if err != nil {
					return apperrors.Wrap(apperrors.ErrCodeStorage, err, "delete snippet")
				}
				printSuccess("Deleted %s", args[0])
				return nil
			})
		},
	}
}

// withStore opens the persistent snippet store for the duration of fn.
func (c *CLI) withStore(cmd *cobra.Command, fn func(context.Context, snippet.Store) error) error {
	cfg, err := c.loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	store, err := persistentStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cmd.Context(), store)
}

// persistentStore is newStore with the memory backend replaced by the file
// store, for commands whose writes must outlive the process.
func persistentStore(ctx context.Context, cfg *config.Config) (snippet.Store, error) {
	if cfg.Store.Backend == config.StoreMemory {
		c := *cfg
		c.Store.Backend = config.StoreFile
		cfg = &c
	}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "open %s store", cfg.Store.Backend)
	}
	return store, nil
}

func getSnippet(ctx context.Context, store snippet.Store, id string) (*snippet.Snippet, error) {
	s, err := store.Get(ctx, id)
	if errors.Is(err, snippet.ErrNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeSnippetNotFound, "no snippet with id %s", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStorage, err, "load snippet")
	}
	return s, nil
}

// loadSnippet reads a saved snippet for evaluation.
func loadSnippet(ctx context.Context, cfg *config.Config, id string) (source, error) {
	if err := apperrors.ValidateSnippetID(id); err != nil {
		return source{}, err
	}
	store, err := persistentStore(ctx, cfg)
	if err != nil {
		return source{}, err
	}
	defer store.Close()

	s, err := getSnippet(ctx, store, id)
	if err != nil {
		return source{}, err
	}
	return source{
		name:             s.Name,
		code:             s.Code,
		showBuiltins:     s.ShowBuiltins,
		showAllFunctions: s.ShowAllFunctions,
	}, nil
}

// readCode reads a snippet from path, or from stdin when path is "-".
func readCode(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(io.LimitReader(stdin, apperrors.MaxCodeBytes+1))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "file not found: %s", path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func snippetFlags(s *snippet.Snippet) string {
	switch {
	case s.ShowBuiltins && s.ShowAllFunctions:
		return "builtins, functions"
	case s.ShowBuiltins:
		return "builtins"
	case s.ShowAllFunctions:
		return "functions"
	}
	return ""
}
