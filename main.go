package main

import "github.com/naka-gawa/org-activity/cmd"

func main() {
	cmd.Execute()
}
