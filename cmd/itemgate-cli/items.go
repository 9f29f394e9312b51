package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/clientcli"
)

var itemsFile string

var itemsCmd = &cobra.Command{
	Use:     "items",
	Aliases: []string{"item"},
	Short:   "Create, list, get, update and delete items",
	Long: `Manage items on the server. Requires a token from 'itemgate-cli login'.

Item payloads are JSON objects given inline, with --file, or on stdin.`,
}

var itemsCreateCmd = &cobra.Command{
	Use:   "create [json]",
	Short: "Create an item",
	Long: `Create an item from a JSON object.

Examples:
  itemgate-cli items create '{"name":"widget","qty":3}'
  itemgate-cli items create --file item.json
  echo '{"name":"widget"}' | itemgate-cli items create`,
	Args: cobra.MaximumNArgs(1),
	RunE: runItemsCreate,
}

var itemsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all items",
	Args:    cobra.NoArgs,
	RunE:    runItemsList,
}

var itemsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one item",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemsGet,
}

var itemsUpdateCmd = &cobra.Command{
	Use:   "update <id> [json]",
	Short: "Merge fields into an item",
	Long: `Merge the given top-level fields into an item, creating it when absent.
The output shows the fields that were written.

Examples:
  itemgate-cli items update 3f2a... '{"qty":4}'
  itemgate-cli items update 3f2a... --file patch.json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runItemsUpdate,
}

var itemsDeleteCmd = &cobra.Command{
	Use:     "delete <id> [id...]",
	Aliases: []string{"rm"},
	Short:   "Delete items",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runItemsDelete,
}

func init() {
	itemsCmd.AddCommand(itemsCreateCmd)
	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsGetCmd)
	itemsCmd.AddCommand(itemsUpdateCmd)
	itemsCmd.AddCommand(itemsDeleteCmd)

	itemsCreateCmd.Flags().StringVarP(&itemsFile, "file", "f", "", "read the JSON object from a file")
	itemsUpdateCmd.Flags().StringVarP(&itemsFile, "file", "f", "", "read the JSON object from a file")
}

func runItemsCreate(cmd *cobra.Command, args []string) error {
	fields, err := readFields(args, itemsFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	item, err := client.CreateItem(cmd.Context(), fields)
	if err != nil {
		return err
	}
	return getFormatter().FormatItem(os.Stdout, item)
}

func runItemsList(cmd *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	items, err := client.ListItems(cmd.Context())
	if err != nil {
		return err
	}
	return getFormatter().FormatItems(os.Stdout, items)
}

func runItemsGet(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	item, err := client.GetItem(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return getFormatter().FormatItem(os.Stdout, item)
}

func runItemsUpdate(cmd *cobra.Command, args []string) error {
	fields, err := readFields(args[1:], itemsFile, cmd.InOrStdin())
	if err != nil {
		return err
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	item, err := client.UpdateItem(cmd.Context(), args[0], fields)
	if err != nil {
		return err
	}
	return getFormatter().FormatItem(os.Stdout, item)
}

func runItemsDelete(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.DeleteItems(cmd.Context(), args)
	if err != nil {
		return err
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}
	return nil
}

var errNotObject = errors.New("item payload must be a JSON object")

// readFields decodes an item payload from the inline argument, the file
// flag, or stdin, in that order. "-" as the argument also means stdin.
func readFields(args []string, file string, stdin io.Reader) (itemgate.Fields, error) {
	var data []byte
	switch {
	case len(args) > 0 && args[0] != "-":
		data = []byte(args[0])
	case file != "":
		b, err := os.ReadFile(file) //#nosec G304 -- file is user-provided input
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		data = b
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		data = b
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return itemgate.Fields{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse item payload: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return itemgate.Fields(obj), nil
}
