// Package config loads the coordinator's runtime parameters (timeout,
// search thread count, per-shard connection count, cursor reply
// threshold, topology validation timeout, partition count, OSS global
// password, and the rest) from flags and environment (no config file is
// read), via viper bound to a cobra command's flag set — the
// pairing kbuley-suffuse and randybias-nightcrier both use for their own
// daemon configuration.
package config
