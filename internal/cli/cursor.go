package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alp4ka/docpager"
)

// NewCursorCommand groups the cursor codec commands.
func NewCursorCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Encode and decode pagination cursors",
	}

	cmd.AddCommand(newCursorDecodeCommand())
	cmd.AddCommand(newCursorEncodeCommand())

	return cmd
}

func newCursorDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Print the boundary tuple of a cursor as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tuple, err := docpager.DecodeTuple(args[0])
			if err != nil {
				return err
			}

			return json.NewEncoder(cmd.OutOrStdout()).Encode(tuple)
		},
	}
}

func newCursorEncodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <json-array>",
		Short: "Encode a JSON array as a cursor token",
		Long: "Encode a JSON array as a cursor token. Integers stay integers, " +
			`{"$oid": "<hex>"} is an ObjectId and {"$undefined": true} an absent field.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := decodeJSON([]byte(args[0]))
			if err != nil {
				return fmt.Errorf("invalid tuple: %w", err)
			}

			values, ok := v.([]any)
			if !ok {
				return fmt.Errorf("invalid tuple: expected a JSON array")
			}

			token, err := docpager.EncodeCursor(values)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)

			return err
		},
	}
}
