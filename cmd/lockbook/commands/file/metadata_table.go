package file

import (
	"github.com/lockbook/lockbook/pkg/core"
)

// metadataTable renders a slice of FileMetadata as a table.
type metadataTable []*core.FileMetadata

func (t metadataTable) Headers() []string {
	return []string{"ID", "Name", "Type", "Deleted"}
}

func (t metadataTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, md := range t {
		deleted := "no"
		if md.Deleted {
			deleted = "yes"
		}
		rows = append(rows, []string{md.ID.String(), md.Name, md.Type.String(), deleted})
	}
	return rows
}
