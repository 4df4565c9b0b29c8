package excel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vinhhap/airbyte-custom-connectors/internal/connectors/microsoft"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/domain"
)

// WorksheetURL builds the Graph URL for a worksheet range.
// Only the address value is escaped; the quotes and parentheses are API syntax.
func (c *Client) WorksheetURL(loc domain.Location) string {
	base := fmt.Sprintf("%s/drives/%s/items/%s/workbook/worksheets/%s",
		c.baseURL, escape(loc.DriveID), escape(loc.WorkbookItemID), escape(loc.WorksheetName))

	if loc.RangeAddress != "" {
		return fmt.Sprintf("%s/range(address='%s')", base, escape(loc.RangeAddress))
	}
	return base + "/usedRange(valuesOnly=true)"
}

// WorksheetValues reads the value matrix of a worksheet range, or of the used
// range when loc has no address. A blank worksheet yields an empty matrix.
func (c *Client) WorksheetValues(ctx context.Context, loc domain.Location) (domain.ValueMatrix, error) {
	u := c.WorksheetURL(loc)
	payload, err := c.graph.RequestJSON(ctx, http.MethodGet, u, selectFields("values"))
	if err != nil {
		return nil, err
	}

	raw, ok := payload["values"]
	if !ok || raw == nil {
		return domain.ValueMatrix{}, nil
	}

	rows, ok := raw.([]any)
	if !ok {
		return nil, &microsoft.MalformedResponseError{
			URL:    u,
			Reason: fmt.Sprintf("'values' is not a list (got %T)", raw),
		}
	}

	matrix := make(domain.ValueMatrix, 0, len(rows))
	for i, r := range rows {
		row, ok := r.([]any)
		if !ok {
			return nil, &microsoft.MalformedResponseError{
				URL:    u,
				Reason: fmt.Sprintf("'values[%d]' is not a list (got %T)", i, r),
			}
		}
		matrix = append(matrix, row)
	}
	return matrix, nil
}
