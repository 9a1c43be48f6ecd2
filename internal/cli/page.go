package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/docpager"
	"github.com/Alp4ka/docpager/store/boltstore"
)

// PageOptions holds flags for the page command.
type PageOptions struct {
	*RootOptions
	DBPath string
	Sort   []string
	Paging docpager.RawCursorPager
}

// NewPageCommand creates the page command, which prints one page of the
// database as JSON.
func NewPageCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PageOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "page",
		Short: "Print one page of documents as JSON",
		Example: `  docpager page --db people.db --sort "name asc ci" --limit 5
  docpager page --db people.db --sort "name asc ci" --limit 5 --next <token>
  docpager page --db people.db --sort "age desc" --after 5f0c1d2e3a4b5c6d7e8f9012`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orderings, err := docpager.ParseSort(opts.Sort, nil)
			if err != nil {
				return err
			}

			pager, err := opts.Paging.Decode(opts.Config, orderings...)
			if err != nil {
				return err
			}

			store, err := boltstore.Open(opts.DBPath, boltstore.Options{
				IDField:  opts.Config.IDField,
				Timeout:  time.Second,
				ReadOnly: true,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			page, err := pager.Paginate(cmd.Context(), store)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(page)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "docpager.db", "path to the bolt database file")
	cmd.Flags().StringArrayVar(&opts.Sort, "sort", nil, `ordering "column asc|desc [ci]", repeatable`)
	cmd.Flags().IntVar(&opts.Paging.Limit, "limit", 0, "page size (0 uses the default)")
	cmd.Flags().StringVar(&opts.Paging.Next, "next", "", "token of the page's next cursor")
	cmd.Flags().StringVar(&opts.Paging.Previous, "previous", "", "token of the page's previous cursor")
	cmd.Flags().StringVar(&opts.Paging.After, "after", "", "identity of the document to start after")
	cmd.Flags().StringVar(&opts.Paging.Before, "before", "", "identity of the document to end before")
	cmd.Flags().StringSliceVar(&opts.Paging.Fields, "fields", nil, "comma-separated paths to return")

	return cmd
}
