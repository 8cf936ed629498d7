// Command paydesk runs the Stripe webhook and payment redirect actions of a
// Frappe site from a terminal, or serves them over HTTP.
package main

import "os"

func main() {
	os.Exit(Execute(os.Args[1:]))
}
