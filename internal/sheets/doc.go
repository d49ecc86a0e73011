// Package sheets provides a client for reading digest input from the Google
// Sheets API.
//
// Cells come back display-formatted (what the user sees in the sheet), and a
// range that cannot be read degrades to placeholder content instead of
// failing the run.
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := sheets.NewClient(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	snap := client.Fetch(ctx, sheets.Query{
//	    SpreadsheetID: "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
//	    DataRange:     "Status!A1:D20",
//	    CommentRange:  "Form Responses 1!B:B",
//	})
package sheets
