// Package report renders link state into downloadable workbooks for
// operators.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"linkmesh/internal/domain"
)

const linksSheet = "Links"

var linkHeaders = []string{
	"ID", "Node A", "Node B", "Status", "Type",
	"Metric", "Metric Value", "Quality", "Interface A", "Interface B",
	"Layer", "Topology", "Last Seen",
}

// WriteLinksXLSX writes an XLSX workbook with one row per link.
func WriteLinksXLSX(w io.Writer, links []*domain.Link) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", linksSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for col, header := range linkHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(linksSheet, cell, header); err != nil {
			return fmt.Errorf("write header %q: %w", header, err)
		}
	}

	for row, link := range links {
		values := []interface{}{
			link.ID,
			link.Data.NodeAName,
			link.Data.NodeBName,
			string(link.Status),
			string(link.Type),
			link.MetricType,
			floatOrEmpty(link.MetricValue),
			link.Quality(),
			link.Data.InterfaceAMAC,
			link.Data.InterfaceBMAC,
			link.Data.LayerSlug,
			topologySlug(link),
			timeOrEmpty(link.LastSeen),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(linksSheet, cell, value); err != nil {
				return fmt.Errorf("write link %d: %w", link.ID, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func floatOrEmpty(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func timeOrEmpty(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func topologySlug(link *domain.Link) string {
	if link.Topology == nil {
		return ""
	}
	return link.Topology.Slug
}
