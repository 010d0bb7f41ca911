// Command statsd-oracle runs differential test scenarios against the statsd
// aggregator daemon.
//
// Usage:
//
//	statsd-oracle run --config scenario.yaml [flags]
//	statsd-oracle predict --config scenario.yaml [flags]
//
// Exit codes: 0 when the scenario passed, 1 when it failed, 2 on usage or
// setup errors.
package main

func main() {
	Execute()
}
