// Command physio-replay runs the rep counter over recorded keypoints or a
// directory of captured frames, printing feedback as it goes.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
