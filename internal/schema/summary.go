package schema

import (
	"fmt"
	"strings"
)

// Summarize renders a descriptor as compact text for LLM context. One block
// per table: each column as `name type NULLABILITY [PRIMARY KEY]`, then any
// foreign keys as `FOREIGN KEY (col) REFERENCES table(col)`. Blocks are
// separated by blank lines and tables keep their declared order, so the same
// descriptor always produces the same bytes.
func Summarize(d Descriptor) string {
	blocks := make([]string, 0, len(d.Tables))
	for _, t := range d.Tables {
		blocks = append(blocks, summarizeTable(t))
	}
	return strings.Join(blocks, "\n\n")
}

func summarizeTable(t Table) string {
	var sb strings.Builder
	sb.WriteString("Table: " + t.Name + "\n")
	for _, c := range t.Columns {
		nullability := "NOT NULL"
		if c.Nullable {
			nullability = "NULL"
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s", c.Name, c.Type, nullability))
		if t.isPrimaryKey(c.Name) {
			sb.WriteString(" [PRIMARY KEY]")
		}
		sb.WriteString("\n")
	}
	for _, fk := range t.ForeignKeys {
		sb.WriteString(fmt.Sprintf("  FOREIGN KEY (%s) REFERENCES %s(%s)\n", fk.Column, fk.ReferencedTable, fk.ReferencedColumn))
	}
	return strings.TrimRight(sb.String(), "\n")
}
