package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	filesJSON    bool
	filesNoIndex bool
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage uploaded documents",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runFilesList,
}

var filesAddCmd = &cobra.Command{
	Use:   "add <file.pdf>...",
	Short: "Upload, parse and index PDF files",
	Long: `Upload each PDF into the workspace, parse it to markdown and add it to
the vector index. Use --no-index to stop after the upload.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFilesAdd,
}

var filesDeleteCmd = &cobra.Command{
	Use:     "delete <fileId>",
	Aliases: []string{"rm"},
	Short:   "Delete a document and drop it from the index",
	Args:    cobra.ExactArgs(1),
	RunE:    runFilesDelete,
}

func init() {
	filesListCmd.Flags().BoolVar(&filesJSON, "json", false, "output as JSON")
	filesAddCmd.Flags().BoolVar(&filesNoIndex, "no-index", false, "upload only")
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesAddCmd)
	filesCmd.AddCommand(filesDeleteCmd)
	rootCmd.AddCommand(filesCmd)
}

func runFilesList(cmd *cobra.Command, _ []string) error {
	files, err := fileService()
	if err != nil {
		return err
	}

	entries, err := files.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	if filesJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal files: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(entries) == 0 {
		cmd.Println("No files uploaded.")
		return nil
	}

	cmd.Printf("%-12s %-8s %5s  %-19s  %s\n", "ID", "STATUS", "PAGES", "UPLOADED", "NAME")
	for _, e := range entries {
		uploaded := "-"
		if e.UploadTime > 0 {
			sec := int64(e.UploadTime)
			uploaded = time.Unix(sec, 0).Local().Format("2006-01-02 15:04:05")
		}
		cmd.Printf("%-12s %-8s %5d  %-19s  %s\n", e.ID, e.Status, e.PageCount, uploaded, e.Name)
	}
	return nil
}

func runFilesAdd(cmd *cobra.Command, args []string) error {
	ingest, err := ingestService()
	if err != nil {
		return err
	}

	var failed int
	for _, path := range args {
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			cmd.PrintErrf("skip %s: not a PDF\n", path)
			failed++
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("skip %s: %v\n", path, err)
			failed++
			continue
		}

		meta, err := ingest.Upload(cmd.Context(), filepath.Base(path), content)
		if err != nil {
			cmd.PrintErrf("upload %s: %v\n", path, err)
			failed++
			continue
		}
		cmd.Printf("Uploaded %s as %s (%d pages)\n", meta.OriginalFilename, meta.ID, meta.PageCount)

		if filesNoIndex {
			continue
		}
		res, err := ingest.Ingest(cmd.Context(), meta.ID)
		if err != nil {
			cmd.PrintErrf("ingest %s: %v\n", meta.ID, err)
			failed++
			continue
		}
		cmd.Printf("Indexed %s: %d chunks\n", res.FileID, res.Chunks)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
	}
	return nil
}

func runFilesDelete(cmd *cobra.Command, args []string) error {
	files, err := fileService()
	if err != nil {
		return err
	}

	if err := files.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
