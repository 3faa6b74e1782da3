package main

import (
	"strings"

	"domex/api/internal/registryclient"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls OWNER",
		Short: "List an owner's active files, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := registry.ListOwnerFiles(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, files)
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one file record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := registry.GetFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, file)
		},
	}
}

func newUpdateCmd() *cobra.Command {
	var (
		name   string
		tags   string
		public bool
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change display name, tags or visibility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := updatePayload(cmd, name, tags, public)
			file, err := registry.UpdateFile(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			return printJSON(cmd, file)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&tags, "tags", "", "comma separated tags (empty string clears them)")
	cmd.Flags().BoolVar(&public, "public", false, "make the file public")
	return cmd
}

// updatePayload only carries the flags that were set on the command line.
func updatePayload(cmd *cobra.Command, name, tags string, public bool) registryclient.UpdatePayload {
	var p registryclient.UpdatePayload
	if cmd.Flags().Changed("name") {
		p.DisplayName = &name
	}
	if cmd.Flags().Changed("tags") {
		list := []string{}
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				list = append(list, t)
			}
		}
		p.Tags = &list
	}
	if cmd.Flags().Changed("public") {
		p.IsPublic = &public
	}
	return p
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Soft-delete a file record (the blob is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := registry.DeleteFile(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Println("File deleted")
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Totals over all active files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := registry.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
}
