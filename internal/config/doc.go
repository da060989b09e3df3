// Package config loads textscan settings from defaults, an optional YAML
// file and TEXTSCAN_* environment variables, in that order.
//
//	# ~/.textscan/config.yaml
//	db_path: /var/lib/textscan/history.db
//	encoding: gbk
//	window_size: 4096
//	extensions: [.txt, .md]
package config
