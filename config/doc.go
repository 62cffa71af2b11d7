// Package config loads ayahvec settings with viper: built-in defaults, an
// optional YAML file, then AYAHVEC_* environment variables.
package config
