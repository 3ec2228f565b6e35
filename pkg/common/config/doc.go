// Package config loads stream options from files and the environment.
//
// Keys mirror duplex.Config in snake case:
//
//	name: enrich
//	high_water_mark: 32
//	readable_high_water_mark: 8
//	strategy: drop_oldest
//
// Every key can be overridden with an OBJSTREAM_ prefixed environment
// variable, for example OBJSTREAM_STRATEGY=error.
package config
