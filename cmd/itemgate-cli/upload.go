package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate/clientcli"
)

var (
	uploadRecursive   bool
	uploadContentType string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an image",
	Long: `Upload an image and print its public URL.

Examples:
  itemgate-cli upload ./photo.png
  itemgate-cli upload -r ./images/
  itemgate-cli upload --content-type image/webp ./photo`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload every file in a directory")
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
}

func runUpload(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	results, err := client.Upload(cmd.Context(), clientcli.UploadOptions{
		LocalPath:   args[0],
		ContentType: uploadContentType,
		Recursive:   uploadRecursive,
	})
	if err != nil {
		return err
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	for i := range results {
		if results[i].Err != nil {
			return &exitError{code: 1}
		}
	}
	return nil
}
