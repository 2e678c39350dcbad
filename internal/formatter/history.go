package formatter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tordrt/dbdiff/internal/store"
)

// NoSnapshots is printed when the history is empty
const NoSnapshots = "No snapshots yet. Run 'dbdiff snapshot' to capture one."

// HistoryFormatter prints snapshot metadata as a table
type HistoryFormatter struct {
	writer io.Writer
	header lipgloss.Style
	cell   lipgloss.Style
}

// NewHistoryFormatter creates a new history formatter
func NewHistoryFormatter(w io.Writer) *HistoryFormatter {
	return &HistoryFormatter{
		writer: w,
		header: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		cell:   lipgloss.NewStyle().Padding(0, 1),
	}
}

// Format writes one row per snapshot, in the order given
func (f *HistoryFormatter) Format(infos []store.Info) error {
	if len(infos) == 0 {
		_, err := fmt.Fprintln(f.writer, NoSnapshots)
		return err
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			strconv.FormatInt(info.ID, 10),
			info.Name,
			info.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(info.TableCount),
			shortChecksum(info.Checksum),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "CREATED", "TABLES", "CHECKSUM").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return f.header
			}
			return f.cell
		})

	_, err := fmt.Fprintln(f.writer, t.Render())
	return err
}

// FormatInfo writes the metadata of a single snapshot
func (f *HistoryFormatter) FormatInfo(info store.Info) error {
	_, err := fmt.Fprintf(f.writer, "Snapshot #%d %q captured %s (%s, checksum %s)\n",
		info.ID, info.Name,
		info.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		plural(info.TableCount, "table"),
		shortChecksum(info.Checksum))
	return err
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
