// Ropsim simulates a network element fleet publishing ROP (reporting output
// period) files to an SFTP server, the way a PM file collector expects to
// find them.
//
// At startup it uploads template files, publishes one symbolic link per
// synthetic node, and then renames every published link to the current ROP
// window on a schedule or on demand. Each published file is announced as a
// notification that collectors query over HTTP.
//
// Usage:
//
//	# Start the simulator with the default configuration file
//	ropsim run
//
//	# Start with a custom configuration file
//	ropsim run --config /etc/ropsim/config.yaml
//
//	# Check a configuration file
//	ropsim validate --config config.yaml
//
//	# Show the path a template gets for node 7 in the current window
//	ropsim rewrite XML/NodeA0001/A20220412.1600+0100-1615+0100_NodeA0001_statsfile.xml --node-index 7
//
//	# List recorded generation cycles
//	ropsim cycles --limit 10
package main

func main() {
	Execute()
}
