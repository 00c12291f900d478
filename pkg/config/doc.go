// Package config declares the environment-backed configuration groups of the
// settings service. Each group is a plain struct with cleanenv `env` and
// `env-default` tags; cmd/settings reads them with cleanenv.ReadEnv.
package config
