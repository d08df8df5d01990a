package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

// printEntity writes e as indented JSON in --json mode, otherwise as
// "[Kind] (id) {attributes}".
func (a *app) printEntity(cmd *cobra.Command, e types.Entity) error {
	if a.flags.jsonMode {
		return writeJSON(cmd, types.PublicDict(e))
	}
	return writeLine(cmd, e)
}

func (a *app) printEntities(cmd *cobra.Command, entities []types.Entity) error {
	if a.flags.jsonMode {
		out := make([]map[string]any, 0, len(entities))
		for _, e := range entities {
			out = append(out, types.PublicDict(e))
		}
		return writeJSON(cmd, out)
	}
	for _, e := range entities {
		if err := writeLine(cmd, e); err != nil {
			return err
		}
	}
	return nil
}

func writeLine(cmd *cobra.Command, e types.Entity) error {
	attrs := types.PublicDict(e)
	delete(attrs, types.ClassKey)
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Kind(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] (%s) %s\n", e.Kind(), e.Meta().ID, data)
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
