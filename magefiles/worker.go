//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Worker builds the CLI and runs the queue worker with the local configuration.
func Worker() error {
	mg.Deps(Build)
	return runBin("worker")
}

// Deadletters lists jobs that exhausted their retry budget.
func Deadletters() error {
	mg.Deps(Build)
	return runBin("queue", "deadletters")
}

func runBin(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}