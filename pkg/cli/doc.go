/*
Package cli provides helpers shared by the ropsim commands: output formatting,
signal handling and error classification.

Output Formatting:

Commands build a Table and let the --output flag pick the formatter:

	format, err := cli.ParseOutputFormat(flagOutput)
	table := cli.Table{Headers: []string{"ID", "NODE"}, Rows: rows, Value: records}
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Exit Codes:

ExitCode returns 2 for configuration errors and 1 for anything else.
*/
package cli
