package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/docpager"
	"github.com/Alp4ka/docpager/store/boltstore"
)

const maxLineSize = 16 << 20

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	DBPath string
}

// NewLoadCommand creates the load command, which imports JSON lines into a
// bolt file.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load [file.jsonl]",
		Short: "Import one JSON document per line into the database",
		Long: "Import one JSON document per line into the database. Reads stdin when no file " +
			"is given. Documents with the same identity are replaced; identities that look " +
			"like ObjectIds are stored as ObjectIds.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()

				in = f
			}

			docs, err := readDocuments(in, opts.Config.IDField)
			if err != nil {
				return err
			}

			store, err := boltstore.Open(opts.DBPath, boltstore.Options{
				IDField: opts.Config.IDField,
				Timeout: time.Second,
			})
			if err != nil {
				return err
			}
			defer store.Close()

			if err = store.Put(cmd.Context(), docs...); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d documents\n", len(docs))

			return err
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "docpager.db", "path to the bolt database file")

	return cmd
}

func readDocuments(r io.Reader, idField string) ([]docpager.Document, error) {
	var docs []docpager.Document

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		v, err := decodeJSON([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		doc, ok := v.(docpager.Document)
		if !ok {
			return nil, fmt.Errorf("line %d: expected a JSON object", line)
		}

		if raw, ok := doc[idField].(string); ok {
			if doc[idField], err = docpager.DefaultParseID(raw); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}

		docs = append(docs, doc)
	}

	return docs, scanner.Err()
}
