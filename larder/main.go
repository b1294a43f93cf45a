// Command larder weighs items on a load cell and appends a row per weighing to a Google spreadsheet.
package main

import (
	"os"
)

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
