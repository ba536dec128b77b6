package main

import (
	"os"

	"github.com/ai-job-readiness/jobready/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
