// Command podtalk pauses a playing podcast, listens to the listener's
// question, and answers it aloud in the host's own cloned voice.
//
// Usage:
//
//	podtalk [flags] <command>
//
// Commands:
//
//	setup   - prepare the configured episode (download, diarize, clone)
//	run     - episode setup plus the interactive talk loop
//	speak   - synthesize arbitrary text in a cloned voice
//	status  - show playback state and cached diarizations
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "podtalk: %v\n", err)
		os.Exit(1)
	}
}
