package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/threadkeeper/internal/logging"
)

// Query names the ranges a digest is built from.
type Query struct {
	SpreadsheetID string
	DataRange     string
	CommentRange  string
}

// Snapshot is the fetched input for one digest: the most recent comment and
// the display-formatted table rows.
type Snapshot struct {
	Comment string
	Rows    [][]string
}

// Fetch retrieves the rows and the most recent comment in one call.
//
// Fetch degrades instead of failing: a range that cannot be read yields a
// clearly marked placeholder, so the delivery still has a body to carry.
// Degradations are logged, not returned.
func (c *Client) Fetch(ctx context.Context, q Query) *Snapshot {
	snap := &Snapshot{}

	rows, err := c.Rows(ctx, q.SpreadsheetID, q.DataRange)
	switch {
	case err != nil:
		c.logger.Warn("Table rows unavailable, using placeholder",
			slog.String("range", q.DataRange),
			logging.Err(err))
		snap.Rows = placeholderRows(q.DataRange)
	case len(rows) == 0:
		c.logger.Warn("Table range is empty, using placeholder",
			slog.String("range", q.DataRange))
		snap.Rows = placeholderRows(q.DataRange)
	default:
		snap.Rows = rows
	}

	if q.CommentRange != "" {
		comment, err := c.LatestComment(ctx, q.SpreadsheetID, q.CommentRange)
		if err != nil {
			c.logger.Warn("Comment unavailable",
				slog.String("range", q.CommentRange),
				logging.Err(err))
		}
		snap.Comment = comment
	}

	return snap
}

// placeholderRows is substituted when a range has no readable data
func placeholderRows(readRange string) [][]string {
	return [][]string{{fmt.Sprintf("[no data for %s]", readRange)}}
}

// rowsFromValues converts the API's untyped cells to strings. FORMATTED_VALUE
// renders are strings already; anything else goes through fmt.
func rowsFromValues(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if cell == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, cells)
	}
	return rows
}

// lastNonEmpty scans backwards for the most recently filled cell
func lastNonEmpty(values [][]interface{}) string {
	for i := len(values) - 1; i >= 0; i-- {
		row := values[i]
		for j := len(row) - 1; j >= 0; j-- {
			if row[j] == nil {
				continue
			}
			cell := strings.TrimSpace(fmt.Sprintf("%v", row[j]))
			if cell != "" {
				return cell
			}
		}
	}
	return ""
}
