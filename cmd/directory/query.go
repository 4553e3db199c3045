package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/provider-directory-go/directory"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type searchFlags struct {
	bbox        string
	name        string
	specialties []string
	categories  []string
	sort        string
	page        int
	size        int
}

func newSearchCommand(opts *rootOptions) *cobra.Command {
	flags := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Print the providers matching the filters as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filters, err := flags.filters()
			if err != nil {
				return err
			}

			d, _, closeBackend, err := opts.app.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeBackend()

			var providers []directory.Provider
			if cmd.Flags().Changed("page") || cmd.Flags().Changed("size") {
				providers, err = d.SearchPage(cmd.Context(), filters, flags.page, flags.size)
			} else {
				providers, err = d.Search(cmd.Context(), filters)
			}

			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), providers)
		},
	}

	cmd.Flags().StringVar(&flags.bbox, "bbox", "", "bounding box south,west,north,east")
	cmd.Flags().StringVar(&flags.name, "name", "", "name substring")
	cmd.Flags().StringSliceVar(&flags.specialties, "specialty", nil, "any of these specialties")
	cmd.Flags().StringSliceVar(&flags.categories, "category", nil, "any of these categories")
	cmd.Flags().StringVar(&flags.sort, "sort", "", "name or rating")
	cmd.Flags().IntVar(&flags.page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&flags.size, "size", 20, "page size")

	return cmd
}

func (f *searchFlags) filters() (directory.Filters, error) {
	builder := directory.BuildFilters().
		NameContaining(f.name).
		SortedBy(directory.ParseSortMode(f.sort))

	if f.bbox != "" {
		box, err := parseBoundingBox(f.bbox)
		if err != nil {
			return directory.Filters{}, err
		}
		builder.WithinBounds(box)
	}

	if len(f.specialties) > 0 {
		builder.WithAnySpecialtyOf(f.specialties[0], f.specialties[1:]...)
	}

	if len(f.categories) > 0 {
		builder.WithAnyCategoryOf(f.categories[0], f.categories[1:]...)
	}

	return builder.Finalize(), nil
}

func parseBoundingBox(raw string) (directory.BoundingBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return directory.BoundingBox{}, fmt.Errorf("--bbox needs south,west,north,east, got %q", raw)
	}

	var coords [4]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return directory.BoundingBox{}, fmt.Errorf("--bbox coordinate %q: %w", part, err)
		}
		coords[i] = v
	}

	return directory.BoundingBox{South: coords[0], West: coords[1], North: coords[2], East: coords[3]}, nil
}

func newSpecialtiesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "specialties",
		Short: "Print the distinct specialties",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, _, closeBackend, err := opts.app.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeBackend()

			values, err := d.ListDistinctSpecialties(cmd.Context())
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), values)
		},
	}
}

func newCategoriesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "Print the distinct categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, _, closeBackend, err := opts.app.open(cmd.Context())
			if err != nil {
				return err
			}
			defer closeBackend()

			values, err := d.ListDistinctCategories(cmd.Context())
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), values)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}
