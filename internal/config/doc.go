// Package config provides configuration loading and validation for the
// AVDECC controller: network interface selection, the controller's own
// entity identity, enumeration tuning, logging, and metrics exposition.
package config 