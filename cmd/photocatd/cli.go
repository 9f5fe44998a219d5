package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sekai02/photocat/internal/api"
	"github.com/sekai02/photocat/internal/catalog"
)

var (
	flagLocation   string
	flagAuthors    []string
	flagTags       []string
	flagCharacters []string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a photo record",
	Example: `  photocatd add --location photos/abc.jpg --authors "Bob,Alice" --tags sky,sea`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagLocation == "" {
			return fmt.Errorf("--location is required")
		}
		return withService(cmd, func(s *api.Service) error {
			rec, err := s.CreateRecord(cmd.Context(), flagLocation, flagAuthors, flagTags, flagCharacters)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Merge authors, tags or characters into a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid record id %q", args[0])
		}
		return withService(cmd, func(s *api.Service) error {
			rec, err := s.UpdateRecord(cmd.Context(), id, catalog.Patch{
				Authors:    flagAuthors,
				Tags:       flagTags,
				Characters: flagCharacters,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:       "search <author|tag|character> <query>",
	Short:     "Search the catalog",
	Long:      "Author search matches whole names; tag and character search match substrings. Both ignore case.",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{api.KindAuthor, api.KindTag, api.KindCharacter},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(s *api.Service) error {
			records, err := s.Search(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		})
	},
}

var authorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "List every author in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(s *api.Service) error {
			authors, err := s.Authors(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), authors)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every record in id order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(s *api.Service) error {
			records, err := s.ListRecords(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		})
	},
}

func init() {
	addCmd.Flags().StringVar(&flagLocation, "location", "", "Where the photo is stored")
	for _, c := range []*cobra.Command{addCmd, updateCmd} {
		c.Flags().StringSliceVar(&flagAuthors, "authors", nil, "Comma-separated authors")
		c.Flags().StringSliceVar(&flagTags, "tags", nil, "Comma-separated tags")
		c.Flags().StringSliceVar(&flagCharacters, "characters", nil, "Comma-separated characters")
	}
}

func withService(cmd *cobra.Command, fn func(*api.Service) error) error {
	s, err := openService(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
