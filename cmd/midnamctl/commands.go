package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/midnam-core/internal/editor"
	"github.com/nerrad567/midnam-core/internal/localstore"
	"github.com/nerrad567/midnam-core/internal/midnam"
)

func (a *app) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			records, err := svc.Records(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				summaries := make([]recordSummary, len(records))
				for i, rec := range records {
					summaries[i] = summarize(rec)
				}
				return a.writeJSON(summaries)
			}

			if len(records) == 0 {
				fmt.Fprintln(a.out, styleMuted.Render("No records."))
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tMANUFACTURER\tMODEL\tSIZE\tSAVED")
			for _, rec := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					rec.Path,
					orDash(rec.Manufacturer),
					orDash(rec.Model),
					rec.Size(),
					rec.SavedAt.Local().Format(time.DateTime),
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print records as JSON")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Print a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.record(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, rec.Document)
			if !strings.HasSuffix(rec.Document, "\n") {
				fmt.Fprintln(a.out)
			}
			return nil
		},
	}
}

func (a *app) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <path> [file]",
		Short: "Store a document, reading stdin when file is omitted or -",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 2 {
				src = args[1]
			}
			document, err := a.readSource(src)
			if err != nil {
				return err
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			res, err := svc.SaveLocal(cmd.Context(), args[0], document)
			if err != nil {
				return err
			}

			verb := "Created"
			if res.IsUpdate {
				verb = "Updated"
			}
			a.success("%s %s (id %s)", verb, args[0], res.ID)
			if _, err := midnam.ExtractDeviceInfo(document); errors.Is(err, midnam.ErrMalformedDocument) {
				fmt.Fprintln(a.errOut, styleMuted.Render("warning: stored document is not well-formed XML"))
			}
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			removed, err := svc.DeleteLocal(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(a.out, styleMuted.Render("No record at "+args[0]+"."))
				return nil
			}
			a.success("Deleted %s", args[0])
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			if !yes {
				if !a.interactive() {
					return errors.New("refusing to clear the store without --yes")
				}
				stats, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if !a.confirm(fmt.Sprintf("Delete all %d records?", stats.Count)) {
					fmt.Fprintln(a.out, styleMuted.Render("Aborted."))
					return nil
				}
			}

			if err := svc.ClearLocal(cmd.Context()); err != nil {
				return err
			}
			a.success("Cleared local store")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			stats, err := svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return a.writeJSON(stats)
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Records\t%d\n", stats.Count)
			fmt.Fprintf(tw, "Total size\t%d bytes\n", stats.TotalSizeBytes)
			fmt.Fprintf(tw, "Manufacturers\t%d\n", stats.DistinctManufacturers)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print totals as JSON")
	return cmd
}

func (a *app) newCmd() *cobra.Command {
	var req editor.NewDeviceRequest
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a minimal document for a new device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			sel, err := svc.CreateDevice(cmd.Context(), req)
			if err != nil {
				return err
			}
			a.success("Created %s at %s", sel.Key, sel.Path)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Manufacturer, "manufacturer", "", "device manufacturer")
	flags.StringVar(&req.Model, "model", "", "device model")
	flags.StringVar(&req.Author, "author", "", "document author")
	flags.StringVar(&req.Path, "path", "", "record path (default derived from manufacturer and model)")
	flags.StringVar(&req.Mode, "mode", "", "custom device mode name")
	flags.StringVar(&req.NameSet, "name-set", "", "channel name set name")
	flags.StringVar(&req.Bank, "bank", "", "first patch bank name")
	flags.StringVar(&req.Patch, "patch", "", "first patch name")
	flags.StringVar(&req.NoteList, "note-list", "", "note list name")
	//nolint:errcheck // Flags are defined above
	cmd.MarkFlagRequired("manufacturer")
	//nolint:errcheck // Flags are defined above
	cmd.MarkFlagRequired("model")
	return cmd
}

func (a *app) normalizeCmd() *cobra.Command {
	var stored string
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Print the view model of a document as JSON",
		Long: `normalize parses a MIDNAM document and prints the editor view model.

It reads stdin when file is omitted or -. Use --stored to normalize a
record from the local store instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var document string
			if stored != "" {
				rec, err := a.record(cmd, stored)
				if err != nil {
					return err
				}
				document = rec.Document
			} else {
				src := "-"
				if len(args) == 1 {
					src = args[0]
				}
				var err error
				if document, err = a.readSource(src); err != nil {
					return err
				}
			}

			view, err := midnam.Normalize(document)
			if err != nil {
				return err
			}
			for _, w := range view.Warnings {
				fmt.Fprintln(a.errOut, styleMuted.Render("warning: "+w.Message))
			}
			return a.writeJSON(view)
		},
	}
	cmd.Flags().StringVar(&stored, "stored", "", "normalize the record at this store path")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <path> [dest]",
		Short: "Write a stored document to a file",
		Long: `export writes the stored document verbatim. dest defaults to the last
element of the record path in the current directory. An existing directory
receives the file under that name.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.record(cmd, args[0])
			if err != nil {
				return err
			}

			name := path.Base(rec.Path)
			dest := name
			if len(args) == 2 {
				dest = args[1]
				if info, statErr := os.Stat(dest); statErr == nil && info.IsDir() {
					dest = filepath.Join(dest, name)
				}
			}
			if err := os.WriteFile(dest, []byte(rec.Document), 0o644); err != nil { //nolint:gosec // Exported documents are not secret
				return fmt.Errorf("writing %s: %w", dest, err)
			}
			a.success("Exported %s to %s", rec.Path, dest)
			return nil
		},
	}
}

// record loads one record and reports a missing one as ErrDeviceNotFound.
func (a *app) record(cmd *cobra.Command, recordPath string) (*localstore.Record, error) {
	svc, err := a.service()
	if err != nil {
		return nil, err
	}
	return svc.Record(cmd.Context(), recordPath)
}

// readSource reads a file, or the command input for "-".
func (a *app) readSource(src string) (string, error) {
	var (
		data []byte
		err  error
	)
	if src == "-" {
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(src) //nolint:gosec // Reading user-named files is the point
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", src, err)
	}
	return string(data), nil
}

func (a *app) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N] ", question)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// recordSummary is a record without its document.
type recordSummary struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	SizeBytes    int    `json:"sizeBytes"`
	SavedAt      string `json:"savedAt"`
	CreatedAt    string `json:"createdAt"`
}

func summarize(rec localstore.Record) recordSummary {
	return recordSummary{
		ID:           rec.ID,
		Path:         rec.Path,
		Manufacturer: rec.Manufacturer,
		Model:        rec.Model,
		SizeBytes:    rec.Size(),
		SavedAt:      rec.SavedAt.UTC().Format(time.RFC3339),
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
