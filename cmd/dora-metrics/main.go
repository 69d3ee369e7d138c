// Command dora-metrics reports deployment frequency, mean time to repair and change
// failure rate for a Jira project.
package main

import "os"

func main() {
	os.Exit(Execute(os.Args[1:], os.Stdout, os.Stderr))
}
