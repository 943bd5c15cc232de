package main

import (
	"log"
	"os"
	"os/exec"
)

// Convenience entry point: runs the HTTP service, or the analysis CLI when
// invoked as "go run . exposure <flags>".
func main() {
	target := "./cmd/server"
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "exposure" {
		target = "./cmd/exposure"
		args = args[1:]
	}

	cmd := exec.Command("go", append([]string{"run", target}, args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		log.Fatalf("Failed to run %s: %v", target, err)
	}
}
