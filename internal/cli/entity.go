package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

const kindHelp = "Kinds: states, cities, places, users, reviews, amenities (singular or class names also work)."

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Show one entity",
		Long:  "Get prints the entity of the given kind and id.\n\n" + kindHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Storage) error {
				e, ok := s.Get(k, args[1])
				if !ok {
					return fmt.Errorf("%s %q: %w", k, args[1], types.ErrNotFound)
				}
				return a.printEntity(cmd, e)
			})
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <kind>",
		Short: "List entities of a kind in creation order",
		Long:  "List prints every entity of the given kind.\n\n" + kindHelp,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Storage) error {
				return a.printEntities(cmd, s.List(k))
			})
		},
	}
}

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count [kind]",
		Short: "Count entities of one kind, or of all kinds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var k types.Kind
			if len(args) == 1 {
				var err error
				if k, err = parseKind(args[0]); err != nil {
					return err
				}
			}
			return a.withStore(func(s types.Storage) error {
				n := s.Count(k)
				if a.flags.jsonMode {
					return writeJSON(cmd, map[string]int{"count": n})
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <kind> [key=value...]",
		Short: "Create an entity",
		Long: "Create builds an entity from key=value pairs and saves it. Values that\n" +
			"parse as JSON (numbers, true, null, quoted strings, objects) keep that type;\n" +
			"anything else is a string. Prints the new id.\n\n" + kindHelp + "\n\n" +
			"Example:\n  hbnb create states name=California\n  hbnb create places name=Loft city_id=<id> user_id=<id> number_rooms=2",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			attrs, err := parseAttrs(args[1:])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Storage) error {
				e, err := s.Create(k, attrs)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return writeJSON(cmd, types.PublicDict(e))
				}
				fmt.Fprintln(cmd.OutOrStdout(), e.Meta().ID)
				return nil
			})
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <kind> <id> key=value...",
		Short: "Update an entity",
		Long: "Update applies key=value pairs to an entity and saves it. id, created_at,\n" +
			"and updated_at never change, nor do a user's email or a place's or review's owners.\n\n" + kindHelp,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			attrs, err := parseAttrs(args[2:])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Storage) error {
				e, err := s.Edit(k, args[1], attrs)
				if err != nil {
					return err
				}
				return a.printEntity(cmd, e)
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete an entity",
		Long:  "Delete removes the entity according to the configured delete_policy and saves.\n\n" + kindHelp,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s types.Storage) error {
				if _, ok := s.Get(k, args[1]); !ok {
					return fmt.Errorf("%s %q: %w", k, args[1], types.ErrNotFound)
				}
				if err := s.Remove(k, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", k, args[1])
				return nil
			})
		},
	}
}

func parseKind(name string) (types.Kind, error) {
	k, err := types.ParseKind(name)
	if err != nil {
		return "", fmt.Errorf("%w %q (valid: states, cities, places, users, reviews, amenities)", err, name)
	}
	return k, nil
}

// parseAttrs turns key=value arguments into an attribute map.
func parseAttrs(args []string) (map[string]any, error) {
	attrs := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid attribute %q (expected key=value)", arg)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		attrs[key] = parsed
	}
	return attrs, nil
}
