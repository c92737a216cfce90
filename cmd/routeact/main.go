// Command routeact runs the adaptive task pipeline: it spawns the tool
// services, routes each example request to a strategy and prints the
// synthesized answers. The serve subcommands host the individual tool
// services over stdio for the pipeline to spawn.
package main

func main() {
	Execute()
}
