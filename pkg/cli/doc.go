// Package cli implements the command-line interface for zfs-feature-discovery.
//
// # Overview
//
// zfs-feature-discovery runs on every node of a cluster next to the
// node-feature-discovery worker. It periodically queries the ZFS tools for
// pool, dataset and global properties and publishes them as node labels by
// writing feature files into the worker's local source directory.
//
// # Commands
//
// run - Publish feature files:
//
//	zfs-feature-discovery run --zpool tank --zpool rpool:ROOT,data [--oneshot]
//
// Refreshes the feature files immediately and then every --interval until
// terminated. With --oneshot it exits after the first refresh. Pools are
// given as repeated --zpool flags of the form "pool" or "pool:ds1,ds2", or
// under the zpools key of the configuration file.
//
// labels - Show published labels:
//
//	zfs-feature-discovery labels [--feature-dir DIR] [--format yaml|json|table]
//
// Reads every feature file with the configured prefix and prints the merged
// labels as the node-feature-discovery worker would see them.
//
// # Global Flags
//
//	--log-level    Log level: debug, info, warn, error (default: info)
//	--help, -h     Show command help
//	--version, -v  Show version information
//
// # Configuration
//
// Settings are resolved from, in increasing order of precedence, built-in
// defaults, the YAML file given by --config, and flags. Every run flag can
// also be set through an environment variable named after it, for example
// ZFS_FEATURE_DISCOVERY_INTERVAL for --interval.
//
// Property selectors (--zpool-props, --zfs-dataset-props) are comma separated
// lists of property names. A plain name adds the property to the default
// set, "-name" removes it and "-all" starts from an empty set.
//
// # Environment Variables
//
//	LOG_LEVEL                          Set logging verbosity
//	ZFS_FEATURE_DISCOVERY_CONFIG_PATH  Configuration file path
//	NOTIFY_SOCKET, WATCHDOG_USEC       systemd readiness and watchdog
//
// # Exit Codes
//
//	0  Success, or terminated by a signal in continuous mode
//	1  Invalid configuration or a failed oneshot refresh
package cli
