// Package server implements the HTTP status server exposing a running
// internal/controller.Controller's health, tracked entities, configuration,
// and Prometheus metrics for operators.
package server
