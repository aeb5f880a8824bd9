package terminal

import (
	"fmt"
	"io"

	"binxfer/index"
	"binxfer/transfer"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// TableFormatter handles formatted table output
type TableFormatter struct {
	table *tablewriter.Table
	w     io.Writer
}

// NewTableFormatter creates a table formatter writing to w.
func NewTableFormatter(w io.Writer) *TableFormatter {
	table := tablewriter.NewWriter(w)
	table.Options(
		tablewriter.WithRendition(tw.Rendition{Borders: tw.Border{Left: tw.Pending, Right: tw.Pending, Top: tw.Pending, Bottom: tw.Pending}}),
		tablewriter.WithPadding(tw.Padding{Left: " ", Right: " "}),
	)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.MaxWidth = 0
		cfg.Header = tw.CellConfig{
			Alignment: tw.CellAlignment{
				Global: tw.AlignLeft,
			},
		}
		cfg.Row = tw.CellConfig{
			Alignment: tw.CellAlignment{
				Global: tw.AlignLeft,
			},
		}
		cfg.Behavior = tw.Behavior{}
	})

	return &TableFormatter{table: table, w: w}
}

// RenderFiles renders the shared files of an index snapshot.
func (tf *TableFormatter) RenderFiles(files []index.FileDescriptor) error {
	if len(files) == 0 {
		fmt.Fprintln(tf.w, "Shared directory is empty")
		return nil
	}

	tf.table.Reset()
	tf.table.Header("Name", "Size", "Modified", "MD5")

	for _, fd := range files {
		name := fd.Name
		if len(name) > 50 {
			name = name[:47] + "..."
		}
		tf.table.Append([]string{
			name,
			transfer.FormatSize(fd.Size),
			fd.ModTime.Format("Jan 02 15:04"),
			fd.Digest,
		})
	}

	return tf.table.Render()
}
