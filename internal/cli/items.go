package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/client"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/order"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// withTodos opens the backend, runs fn and releases the backend again.
func (o *RootOptions) withTodos(cmd *cobra.Command, fn func(context.Context, order.Todos) error) error {
	ctx := cmd.Context()
	todos, release, err := o.todos(ctx)
	if err != nil {
		return err
	}
	defer release()
	return classify(fn(ctx, todos))
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Append an item to the end of the list",
		Example: `  todo add Buy milk
  todo add "Write report" -d "quarterly numbers"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTodos(cmd, func(ctx context.Context, todos order.Todos) error {
				it, err := todos.Append(ctx, model.Draft{
					Title:       strings.Join(args, " "),
					Description: description,
				})
				if err != nil {
					return err
				}
				ui.OK(cmd.OutOrStdout(), fmt.Sprintf("added %q at %d", it.Title, it.Position+1))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "item description")
	return cmd
}

// ListOptions holds flags for the ls command.
type ListOptions struct {
	Filter string
	JSON   bool
}

// NewListCommand creates the ls command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	lo := &ListOptions{}

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List items in order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTodos(cmd, func(ctx context.Context, todos order.Todos) error {
				items, err := todos.List(ctx)
				if err != nil {
					return err
				}
				if lo.Filter != "" {
					items = filterItems(items, lo.Filter)
				}
				if lo.JSON {
					b, err := json.MarshalIndent(items, "", "  ")
					if err != nil {
						return fmt.Errorf("encode items: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(b))
					return nil
				}
				ui.RenderList(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&lo.Filter, "filter", "f", "", "fuzzy-match titles, best match first")
	cmd.Flags().BoolVar(&lo.JSON, "json", false, "print items as JSON")
	return cmd
}

// filterItems keeps items whose title fuzzily matches q, closest first.
// Ties keep list order.
func filterItems(items []model.Item, q string) []model.Item {
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	ranks := fuzzy.RankFindNormalizedFold(q, titles)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})
	out := make([]model.Item, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, items[r.OriginalIndex])
	}
	return out
}

// NewEditCommand creates the edit command.
func NewEditCommand(opts *RootOptions) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit <ref>",
		Short: "Change the title or description of an item",
		Long: `Change the title or description of an item.

<ref> is the 1-based index shown by "todo ls" or an item ID.`,
		Example: `  todo edit 2 -t "Buy oat milk"
  todo edit 01J9Z3K8Q7M2 -d ""`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p model.Patch
			if cmd.Flags().Changed("title") {
				p.Title = &title
			}
			if cmd.Flags().Changed("description") {
				p.Description = &description
			}
			if p.Empty() {
				return NewExitError(ExitUsage, "edit: nothing to change; pass --title or --description")
			}
			return opts.withTodos(cmd, func(ctx context.Context, todos order.Todos) error {
				id, err := resolveRef(ctx, todos, args[0])
				if err != nil {
					return err
				}
				it, err := todos.Edit(ctx, id, p)
				if err != nil {
					return err
				}
				ui.OK(cmd.OutOrStdout(), fmt.Sprintf("updated %q", it.Title))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <ref>",
		Short: "Remove an item; the items after it move up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTodos(cmd, func(ctx context.Context, todos order.Todos) error {
				id, err := resolveRef(ctx, todos, args[0])
				if err != nil {
					return err
				}
				if err := todos.Remove(ctx, id); err != nil {
					return err
				}
				ui.OK(cmd.OutOrStdout(), "removed")
				return nil
			})
		},
	}
}

// NewMoveCommand creates the mv command.
func NewMoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <ref> <position>",
		Short: "Move an item to a 1-based position",
		Example: `  todo mv 4 1     # move the fourth item to the top
  todo mv 1 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.Atoi(args[1])
			if err != nil {
				return NewExitError(ExitUsage, "mv: position is not a number: "+args[1])
			}
			if pos < 1 {
				return &ExitError{
					Code:    ExitUsage,
					Message: fmt.Sprintf("mv: position must be 1 or more, got %d", pos),
					Hint:    "positions start at 1; run `todo ls` to see them",
				}
			}
			return opts.withTodos(cmd, func(ctx context.Context, todos order.Todos) error {
				id, err := resolveRef(ctx, todos, args[0])
				if err != nil {
					return err
				}
				items, err := todos.Move(ctx, id, pos-1)
				if err != nil {
					return err
				}
				ui.RenderList(cmd.OutOrStdout(), items)
				return nil
			})
		},
	}
}

// NewTUICommand creates the tui command.
func NewTUICommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and reorder items interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTodos(cmd, func(ctx context.Context, todos order.Todos) error {
				if c, ok := todos.(*client.Client); ok {
					if _, err := c.Health(ctx); err != nil {
						return err
					}
				}
				if err := tui.Run(ctx, todos); err != nil {
					return fmt.Errorf("tui: %w", err)
				}
				return nil
			})
		},
	}
}

// resolveRef turns a 1-based index or an item ID into an ID.
func resolveRef(ctx context.Context, todos order.Todos, ref string) (string, error) {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref, nil
	}
	items, err := todos.List(ctx)
	if err != nil {
		return "", err
	}
	if n < 1 || n > len(items) {
		return "", &ExitError{
			Code:    ExitUsage,
			Message: fmt.Sprintf("index out of range: have %d, got %d", len(items), n),
			Hint:    "run `todo ls` to see valid indexes",
		}
	}
	return items[n-1].ID, nil
}
