// Command csvdocctl is a read-only operator tool: it validates metadata
// sidecars and inspects checkpoint state without touching a data file
// or a database connection.
package main

import "csvdoc/cmd/csvdocctl/cmd"

func main() {
	cmd.Execute()
}
