package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/hbnb/pkg/types"
)

func newLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <place_id> <amenity_id>",
		Short: "Attach an amenity to a place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Storage) error {
				created, err := s.AddAmenity(args[0], args[1])
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "linked amenity %s to place %s\n", args[1], args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "amenity %s already linked to place %s\n", args[1], args[0])
				}
				return nil
			})
		},
	}
}

func newUnlinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <place_id> <amenity_id>",
		Short: "Detach an amenity from a place",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.Storage) error {
				removed, err := s.RemoveAmenity(args[0], args[1])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("amenity %s is not linked to place %s: %w", args[1], args[0], types.ErrNotFound)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unlinked amenity %s from place %s\n", args[1], args[0])
				return nil
			})
		},
	}
}
